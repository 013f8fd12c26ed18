package nn

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

var sqliteSchema = []string{
	`CREATE TABLE metadata (name TEXT PRIMARY KEY, value TEXT)`,
	`CREATE TABLE nodes (
		tree INTEGER NOT NULL,
		node INTEGER NOT NULL,
		feature INTEGER NOT NULL DEFAULT 0,
		threshold REAL NOT NULL DEFAULT 0,
		left_child INTEGER NOT NULL DEFAULT -1,
		right_child INTEGER NOT NULL DEFAULT -1,
		value TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (tree, node)
	)`,
}

func loadSQLite(path string) (*Forest, error) {
	db, err := sql.Open("sqlite3", sqliteDSN(path, "ro"))
	if err != nil {
		return nil, err
	}
	defer db.Close()

	// Verify it's a model database
	var count int
	err = db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN ('metadata', 'nodes')").Scan(&count)
	if err != nil {
		return nil, err
	}
	if count != 2 {
		return nil, fmt.Errorf("not a model database")
	}

	f := &Forest{}
	if err := readMetadata(db, f); err != nil {
		return nil, err
	}
	if err := readNodes(db, f); err != nil {
		return nil, err
	}
	return f, nil
}

func readMetadata(db *sql.DB, f *Forest) error {
	rows, err := db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}

		switch key {
		case "name":
			f.Name = value
		case "features":
			f.Features = splitList(value)
		case "classes":
			for _, s := range splitList(value) {
				c, err := strconv.Atoi(s)
				if err != nil {
					return fmt.Errorf("metadata classes: %w", err)
				}
				f.Classes = append(f.Classes, c)
			}
		}
	}
	return rows.Err()
}

func readNodes(db *sql.DB, f *Forest) error {
	rows, err := db.Query(`SELECT tree, node, feature, threshold, left_child, right_child, value
		FROM nodes ORDER BY tree, node`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tree, idx int
			n         Node
			value     string
		)
		if err := rows.Scan(&tree, &idx, &n.Feature, &n.Threshold, &n.Left, &n.Right, &value); err != nil {
			return err
		}

		if tree == len(f.Trees) {
			f.Trees = append(f.Trees, Tree{})
		}
		if tree != len(f.Trees)-1 || idx != len(f.Trees[tree].Nodes) {
			return fmt.Errorf("nodes table is not contiguous at tree %d node %d", tree, idx)
		}

		for _, s := range splitList(value) {
			w, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("tree %d node %d value: %w", tree, idx, err)
			}
			n.Value = append(n.Value, w)
		}
		f.Trees[tree].Nodes = append(f.Trees[tree].Nodes, n)
	}
	return rows.Err()
}

// SaveSQLite writes f to a new SQLite database at path, replacing any
// existing file.
func SaveSQLite(f *Forest, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}

	db, err := sql.Open("sqlite3", sqliteDSN(path, "rwc"))
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range sqliteSchema {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	classes := make([]string, len(f.Classes))
	for i, c := range f.Classes {
		classes[i] = strconv.Itoa(c)
	}
	meta := map[string]string{
		"name":     f.Name,
		"features": strings.Join(f.Features, ","),
		"classes":  strings.Join(classes, ","),
	}
	for k, v := range meta {
		if _, err := tx.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", k, v); err != nil {
			return err
		}
	}

	stmt, err := tx.Prepare(`INSERT INTO nodes (tree, node, feature, threshold, left_child, right_child, value)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for t, tree := range f.Trees {
		for i, n := range tree.Nodes {
			weights := make([]string, len(n.Value))
			for j, w := range n.Value {
				weights[j] = strconv.FormatFloat(w, 'g', -1, 64)
			}
			if _, err := stmt.Exec(t, i, n.Feature, n.Threshold, n.Left, n.Right, strings.Join(weights, ",")); err != nil {
				return fmt.Errorf("insert tree %d node %d: %w", t, i, err)
			}
		}
	}

	return tx.Commit()
}

// sqliteDSN builds a URI filename so characters such as '?', '#' and '%'
// in path are taken literally.
func sqliteDSN(path, mode string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(path),
		RawQuery: url.Values{"mode": {mode}}.Encode(),
	}
	return u.String()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
