// Package components indexes the component metadata the Surface compiler
// writes under the definitions directory.
package components

import (
	"database/sql"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
	"github.com/tliron/commonlog"
	"gitlab.com/tozd/go/errors"
)

const (
	ByNameFile = "components_by_name.json"
	ListFile   = "components.json"
)

var (
	ErrNotFound       = errors.Base("component not found")
	ErrCatalogClosed  = errors.Base("catalog is closed")
	ErrMalformedInput = errors.Base("malformed metadata")
)

var log = commonlog.GetLogger("surface.components")

type Prop struct {
	Name string
	Type string
	Opts string
	Doc  string
	Line int
}

// Required reports whether the prop options declare it as required.
func (p Prop) Required() bool {
	return strings.Contains(p.Opts, "required: true")
}

type Component struct {
	Name   string
	Alias  string
	Docs   string
	Source string
	Props  []Prop
}

// Entry is one item of the completion list.
type Entry struct {
	Name  string
	Alias string
}

// Catalog holds the metadata of one workspace in an in-memory database.
type Catalog struct {
	mu   sync.Mutex
	fs   afero.Fs
	dir  string
	db   *sql.DB
	seen map[string]time.Time
}

// Open creates a catalog reading from dir and loads it once. Missing files
// leave the catalog empty.
func Open(fs afero.Fs, dir string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, errors.Errorf("failed to open database: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, errors.Errorf("failed to initialize schema: %w", err)
	}

	c := &Catalog{fs: fs, dir: dir, db: db, seen: make(map[string]time.Time)}
	if err := c.Reload(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) Dir() string {
	return c.dir
}

// Refresh reloads the catalog when either metadata file changed since the
// last load.
func (c *Catalog) Refresh() (bool, error) {
	c.mu.Lock()
	changed := false
	for _, name := range []string{ByNameFile, ListFile} {
		if c.modTime(name) != c.seen[name] {
			changed = true
			break
		}
	}
	c.mu.Unlock()

	if !changed {
		return false, nil
	}
	return true, c.Reload()
}

// Reload replaces the catalog contents with what is currently on disk.
func (c *Catalog) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return errors.WithStack(ErrCatalogClosed)
	}

	byName := c.read(ByNameFile)
	list := c.read(ListFile)

	tx, err := c.db.Begin()
	if err != nil {
		return errors.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM props`); err != nil {
		return errors.Errorf("failed to clear props: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM components`); err != nil {
		return errors.Errorf("failed to clear components: %w", err)
	}

	if byName.IsObject() {
		var ferr error
		byName.ForEach(func(key, value gjson.Result) bool {
			ferr = insertComponent(tx, key.String(), value)
			return ferr == nil
		})
		if ferr != nil {
			return ferr
		}
	}

	if list.IsArray() {
		var ferr error
		list.ForEach(func(_, value gjson.Result) bool {
			name := value.Get("name").String()
			if name == "" {
				return true
			}
			alias := value.Get("alias").String()
			if alias == "" {
				alias = shortName(name)
			}
			_, ferr = tx.Exec(`
                INSERT INTO components (name, alias, listed) VALUES (?, ?, 1)
                ON CONFLICT(name) DO UPDATE SET alias = excluded.alias, listed = 1
            `, name, alias)
			return ferr == nil
		})
		if ferr != nil {
			return errors.Errorf("failed to insert listed component: %w", ferr)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Errorf("failed to commit: %w", err)
	}

	for _, name := range []string{ByNameFile, ListFile} {
		c.seen[name] = c.modTime(name)
	}
	log.Debugf("reloaded component metadata from %s", c.dir)
	return nil
}

func insertComponent(tx *sql.Tx, name string, def gjson.Result) error {
	if _, err := tx.Exec(`
        INSERT INTO components (name, alias, docs, source) VALUES (?, ?, ?, ?)
    `, name, shortName(name), def.Get("docs").String(), def.Get("source").String()); err != nil {
		return errors.Errorf("failed to insert component %s: %w", name, err)
	}

	var err error
	position := 0
	def.Get("props").ForEach(func(_, prop gjson.Result) bool {
		_, err = tx.Exec(`
            INSERT OR REPLACE INTO props (component, position, name, type, opts, doc, line)
            VALUES (?, ?, ?, ?, ?, ?, ?)
        `, name, position, prop.Get("name").String(), prop.Get("type").String(),
			prop.Get("opts").String(), prop.Get("doc").String(), prop.Get("line").Int())
		position++
		return err == nil
	})
	if err != nil {
		return errors.Errorf("failed to insert props of %s: %w", name, err)
	}
	return nil
}

// read returns the parsed file, or an empty result when it is missing or
// malformed.
func (c *Catalog) read(name string) gjson.Result {
	path := filepath.Join(c.dir, name)
	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return gjson.Result{}
	}
	if !gjson.ValidBytes(data) {
		log.Warningf("%s", errors.WithDetails(ErrMalformedInput, "path", path))
		return gjson.Result{}
	}
	return gjson.ParseBytes(data)
}

func (c *Catalog) modTime(name string) time.Time {
	info, err := c.fs.Stat(filepath.Join(c.dir, name))
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Lookup returns the component with the given qualified name.
func (c *Catalog) Lookup(name string) (Component, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return Component{}, errors.WithStack(ErrCatalogClosed)
	}

	comp := Component{Name: name}
	err := c.db.QueryRow(`
        SELECT alias, docs, source FROM components WHERE name = ?
    `, name).Scan(&comp.Alias, &comp.Docs, &comp.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return Component{}, errors.WithDetails(ErrNotFound, "name", name)
	} else if err != nil {
		return Component{}, errors.Errorf("failed to query component %s: %w", name, err)
	}

	rows, err := c.db.Query(`
        SELECT name, type, opts, doc, line FROM props
        WHERE component = ?
        ORDER BY position
    `, name)
	if err != nil {
		return Component{}, errors.Errorf("failed to query props of %s: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Prop
		if err := rows.Scan(&p.Name, &p.Type, &p.Opts, &p.Doc, &p.Line); err != nil {
			return Component{}, errors.Errorf("failed to scan prop: %w", err)
		}
		comp.Props = append(comp.Props, p)
	}
	return comp, rows.Err()
}

// Prop returns one declared prop of a component.
func (c *Catalog) Prop(component, prop string) (Component, Prop, error) {
	comp, err := c.Lookup(component)
	if err != nil {
		return Component{}, Prop{}, err
	}
	for _, p := range comp.Props {
		if p.Name == prop {
			return comp, p, nil
		}
	}
	return Component{}, Prop{}, errors.WithDetails(ErrNotFound, "name", component, "prop", prop)
}

// List returns the components offered for completion, ordered by alias.
func (c *Catalog) List() ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil, errors.WithStack(ErrCatalogClosed)
	}

	rows, err := c.db.Query(`
        SELECT name, alias FROM components
        WHERE listed = 1
        ORDER BY alias, name
    `)
	if err != nil {
		return nil, errors.Errorf("failed to query components: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.Alias); err != nil {
			return nil, errors.Errorf("failed to scan component: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

func shortName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
