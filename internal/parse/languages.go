package parse

import (
	"path/filepath"
	"slices"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// language ties a grammar to the file extensions parsed with it. C headers
// are left out: a .h file is as often C++ as C.
type language struct {
	name    string
	exts    []string
	grammar func() *sitter.Language
}

var languages = []language{
	{"c", []string{".c"}, c.GetLanguage},
	{"cpp", []string{".cpp", ".cc", ".cxx", ".hpp", ".hh"}, cpp.GetLanguage},
	{"go", []string{".go"}, golang.GetLanguage},
	{"java", []string{".java"}, java.GetLanguage},
	{"javascript", []string{".js", ".jsx", ".mjs"}, javascript.GetLanguage},
	{"php", []string{".php"}, php.GetLanguage},
	{"python", []string{".py"}, python.GetLanguage},
	{"ruby", []string{".rb"}, ruby.GetLanguage},
	{"rust", []string{".rs"}, rust.GetLanguage},
	{"tsx", []string{".tsx"}, tsx.GetLanguage},
	{"typescript", []string{".ts"}, ts.GetLanguage},
}

// byExt is built from languages at init; grammars are loaded on first use.
var (
	byExt = func() map[string]string {
		m := make(map[string]string)
		for _, l := range languages {
			for _, ext := range l.exts {
				m[ext] = l.name
			}
		}
		return m
	}()

	grammars = sync.OnceValue(func() map[string]*sitter.Language {
		m := make(map[string]*sitter.Language, len(languages))
		for _, l := range languages {
			m[l.name] = l.grammar()
		}
		return m
	})
)

// LanguageForFile returns the language name for path's extension, ignoring
// case.
func LanguageForFile(path string) (string, bool) {
	lang, ok := byExt[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// GrammarForLanguage returns the tree-sitter grammar for a language name.
func GrammarForLanguage(lang string) (*sitter.Language, bool) {
	l, ok := grammars()[lang]
	return l, ok
}

// Languages returns the supported language names, sorted.
func Languages() []string {
	names := make([]string, len(languages))
	for i, l := range languages {
		names[i] = l.name
	}
	slices.Sort(names)
	return names
}
