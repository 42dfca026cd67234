package store

import (
	"database/sql"
	"fmt"
)

// SaveModel writes m, replacing any model with the same name. It sets m.ID.
func (s *Store) SaveModel(m *Model) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteModelTx(tx, m.Name); err != nil {
		return 0, err
	}

	res, err := tx.Exec(
		`INSERT INTO models (name, token_delimiter, sequence_hash, merges_requested, nodes_before, nodes_after, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Name, m.TokenDelimiter, m.SequenceHash, m.MergesRequested, m.NodesBefore, m.NodesAfter, m.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert model: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	labelStmt, err := tx.Prepare("INSERT INTO type_labels (model_id, position, label) VALUES (?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("prepare labels: %w", err)
	}
	defer labelStmt.Close()
	for i, l := range m.Labels {
		if _, err := labelStmt.Exec(id, i, l); err != nil {
			return 0, fmt.Errorf("insert label %d: %w", i, err)
		}
	}

	pairStmt, err := tx.Prepare("INSERT INTO type_pairs (model_id, position, parent_type, child_type) VALUES (?, ?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("prepare pairs: %w", err)
	}
	defer pairStmt.Close()
	for i, p := range m.Pairs {
		if _, err := pairStmt.Exec(id, i, p.ParentType, p.ChildType); err != nil {
			return 0, fmt.Errorf("insert pair %d: %w", i, err)
		}
	}

	stepStmt, err := tx.Prepare("INSERT INTO merge_steps (model_id, ordinal, type_id, label, count, merged) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("prepare steps: %w", err)
	}
	defer stepStmt.Close()
	for i, st := range m.Steps {
		if _, err := stepStmt.Exec(id, i, st.TypeID, st.Label, st.Count, st.Merged); err != nil {
			return 0, fmt.Errorf("insert step %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit model: %w", err)
	}
	m.ID = id
	return id, nil
}

// LoadModel reads the model called name with all of its tables.
func (s *Store) LoadModel(name string) (*Model, error) {
	m := &Model{}
	var createdAt sql.NullTime
	err := s.db.QueryRow(
		`SELECT id, name, token_delimiter, sequence_hash, merges_requested, nodes_before, nodes_after, created_at
		 FROM models WHERE name = ?`, name,
	).Scan(&m.ID, &m.Name, &m.TokenDelimiter, &m.SequenceHash, &m.MergesRequested, &m.NodesBefore, &m.NodesAfter, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	m.CreatedAt = createdAt.Time

	rows, err := s.db.Query("SELECT label FROM type_labels WHERE model_id = ? ORDER BY position", m.ID)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan label: %w", err)
		}
		m.Labels = append(m.Labels, l)
	}
	rows.Close()

	rows, err = s.db.Query("SELECT parent_type, child_type FROM type_pairs WHERE model_id = ? ORDER BY position", m.ID)
	if err != nil {
		return nil, fmt.Errorf("query pairs: %w", err)
	}
	for rows.Next() {
		var p TypePair
		if err := rows.Scan(&p.ParentType, &p.ChildType); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		m.Pairs = append(m.Pairs, p)
	}
	rows.Close()

	rows, err = s.db.Query("SELECT type_id, label, count, merged FROM merge_steps WHERE model_id = ? ORDER BY ordinal", m.ID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var st MergeStep
		if err := rows.Scan(&st.TypeID, &st.Label, &st.Count, &st.Merged); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		m.Steps = append(m.Steps, st)
	}
	return m, rows.Err()
}

// Models lists stored models ordered by name.
func (s *Store) Models() ([]*ModelInfo, error) {
	rows, err := s.db.Query(`
		SELECT m.id, m.name, m.sequence_hash, m.merges_requested, m.nodes_before, m.nodes_after, m.created_at,
		       (SELECT COUNT(*) FROM merge_steps ms WHERE ms.model_id = m.id),
		       (SELECT COUNT(*) FROM type_labels tl WHERE tl.model_id = m.id)
		FROM models m ORDER BY m.name`)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var infos []*ModelInfo
	for rows.Next() {
		info := &ModelInfo{}
		var createdAt sql.NullTime
		if err := rows.Scan(&info.ID, &info.Name, &info.SequenceHash, &info.MergesRequested,
			&info.NodesBefore, &info.NodesAfter, &createdAt, &info.StepCount, &info.LabelCount); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		info.CreatedAt = createdAt.Time
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeleteModel removes the model called name. Deleting a missing model
// returns ErrModelNotFound.
func (s *Store) DeleteModel(name string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRow("SELECT id FROM models WHERE name = ?", name).Scan(&id)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("lookup model: %w", err)
	}
	if err := deleteModelTx(tx, name); err != nil {
		return err
	}
	return tx.Commit()
}

// deleteModelTx removes a model and its tables, children first.
func deleteModelTx(tx *sql.Tx, name string) error {
	for _, q := range []string{
		"DELETE FROM merge_steps WHERE model_id IN (SELECT id FROM models WHERE name = ?)",
		"DELETE FROM type_pairs WHERE model_id IN (SELECT id FROM models WHERE name = ?)",
		"DELETE FROM type_labels WHERE model_id IN (SELECT id FROM models WHERE name = ?)",
		"DELETE FROM models WHERE name = ?",
	} {
		if _, err := tx.Exec(q, name); err != nil {
			return fmt.Errorf("delete model data: %w", err)
		}
	}
	return nil
}
