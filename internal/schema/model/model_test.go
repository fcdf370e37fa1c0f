package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewCatalog(t *testing.T) {
	c := NewCatalog()

	if c.Tables == nil || c.Views == nil || c.Indexes == nil || c.Triggers == nil {
		t.Fatal("catalog maps should be initialized")
	}
}

func TestLookupIgnoresCase(t *testing.T) {
	c := NewCatalog()
	c.Tables["users"] = &Table{Name: "Users", Columns: []*Column{{Name: "Id", Type: "INTEGER"}}}
	c.Views["active"] = &View{Name: "Active"}

	if c.Table("USERS") == nil {
		t.Error("Table(USERS) = nil")
	}
	if c.View("aCtIvE") == nil {
		t.Error("View(aCtIvE) = nil")
	}
	if c.Table("USERS").Column("id") == nil {
		t.Error("Column(id) = nil")
	}
	if c.Table("missing") != nil {
		t.Error("Table(missing) should be nil")
	}
}

func TestRowIDAlias(t *testing.T) {
	tests := []struct {
		name  string
		table *Table
		want  string
	}{
		{
			name: "integer primary key",
			table: &Table{
				Columns:    []*Column{{Name: "id", Type: "integer", PrimaryKey: true}},
				PrimaryKey: []string{"id"},
			},
			want: "id",
		},
		{
			name: "int is not an alias",
			table: &Table{
				Columns:    []*Column{{Name: "id", Type: "INT", PrimaryKey: true}},
				PrimaryKey: []string{"id"},
			},
		},
		{
			name: "composite key",
			table: &Table{
				Columns:    []*Column{{Name: "a", Type: "INTEGER"}, {Name: "b", Type: "INTEGER"}},
				PrimaryKey: []string{"a", "b"},
			},
		},
		{
			name: "without rowid",
			table: &Table{
				Columns:      []*Column{{Name: "id", Type: "INTEGER"}},
				PrimaryKey:   []string{"id"},
				WithoutRowID: true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ""
			if col := tt.table.RowIDAlias(); col != nil {
				got = col.Name
			}
			if got != tt.want {
				t.Errorf("RowIDAlias() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSortedObjects(t *testing.T) {
	c := NewCatalog()
	for _, name := range []string{"zebra", "Alpha", "beta"} {
		c.Tables[CanonicalName(name)] = &Table{Name: name}
	}

	var got []string
	for _, tbl := range c.SortedTables() {
		got = append(got, tbl.Name)
	}
	if diff := cmp.Diff([]string{"Alpha", "beta", "zebra"}, got); diff != "" {
		t.Errorf("SortedTables mismatch (-want +got):\n%s", diff)
	}
}

func TestDropTableCascades(t *testing.T) {
	c := NewCatalog()
	c.Tables["users"] = &Table{Name: "users"}
	c.Tables["orders"] = &Table{Name: "orders"}
	c.Indexes["users_name"] = &Index{Name: "users_name", Table: "users"}
	c.Indexes["orders_user"] = &Index{Name: "orders_user", Table: "orders"}
	c.Triggers["users_audit"] = &Trigger{Name: "users_audit", Table: "Users"}

	if !c.DropTable("USERS") {
		t.Fatal("DropTable(USERS) = false")
	}
	if c.DropTable("users") {
		t.Error("second DropTable(users) = true")
	}
	if _, ok := c.Indexes["users_name"]; ok {
		t.Error("index on dropped table survived")
	}
	if _, ok := c.Indexes["orders_user"]; !ok {
		t.Error("unrelated index was dropped")
	}
	if len(c.Triggers) != 0 {
		t.Errorf("triggers = %d, want 0", len(c.Triggers))
	}
}
