package store

// ModelStore is the persistence surface for fitted models.
type ModelStore interface {
	SaveModel(m *Model) (int64, error)
	LoadModel(name string) (*Model, error)
	Models() ([]*ModelInfo, error)
	DeleteModel(name string) error
}

// Compile-time check: *Store satisfies ModelStore.
var _ ModelStore = (*Store)(nil)
