package relation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"db-lens/internal/catalog"
	"db-lens/internal/relation"
)

func blogSnapshot() *catalog.Snapshot {
	users := &catalog.Table{
		Name: "users",
		Columns: []catalog.Column{
			{Name: "id", Type: catalog.TypeInteger, PrimaryKey: true},
			{Name: "name", Type: catalog.TypeText},
		},
		PrimaryKey: []string{"id"},
	}
	posts := &catalog.Table{
		Name: "posts",
		Columns: []catalog.Column{
			{Name: "id", Type: catalog.TypeInteger, PrimaryKey: true},
			{Name: "user_id", Type: catalog.TypeInteger, Nullable: true},
			{Name: "title", Type: catalog.TypeText},
		},
		PrimaryKey: []string{"id"},
		ForeignKeys: []catalog.ForeignKey{
			{Name: "fk_posts_user", Columns: []string{"user_id"}, RefTable: "users", RefColumns: []string{"id"}},
		},
	}
	profiles := &catalog.Table{
		Name: "profiles",
		Columns: []catalog.Column{
			{Name: "id", Type: catalog.TypeInteger, PrimaryKey: true},
			{Name: "user_id", Type: catalog.TypeInteger},
		},
		PrimaryKey: []string{"id"},
		Uniques: []catalog.Unique{
			{Name: "uq_profiles_user", Columns: []string{"user_id"}},
		},
		ForeignKeys: []catalog.ForeignKey{
			{Name: "fk_profiles_user", Columns: []string{"user_id"}, RefTable: "users", RefColumns: []string{"id"}},
		},
	}
	return catalog.NewSnapshot(1, []*catalog.Table{users, posts, profiles})
}

func TestResolveManyToOne(t *testing.T) {
	rels, warnings := relation.Resolve(blogSnapshot())
	assert.Empty(t, warnings)
	require.Len(t, rels, 2)

	post := rels[0]
	assert.Equal(t, "user", post.Name, "user_id trims to user")
	assert.Equal(t, "posts", post.SourceTable)
	assert.Equal(t, "users", post.TargetTable)
	assert.Equal(t, relation.ManyToOne, post.Cardinality)
	assert.True(t, post.Optional, "nullable user_id makes the relation optional")

	profile := rels[1]
	assert.Equal(t, relation.OneToOne, profile.Cardinality, "unique FK column flips the source side to one")
	assert.False(t, profile.Optional)
}

func TestResolveCompositeForeignKey(t *testing.T) {
	orders := &catalog.Table{
		Name: "orders",
		Columns: []catalog.Column{
			{Name: "region", Type: catalog.TypeText, PrimaryKey: true},
			{Name: "number", Type: catalog.TypeInteger, PrimaryKey: true},
		},
		PrimaryKey: []string{"region", "number"},
	}
	items := &catalog.Table{
		Name: "order_items",
		Columns: []catalog.Column{
			{Name: "id", Type: catalog.TypeInteger, PrimaryKey: true},
			{Name: "order_region", Type: catalog.TypeText},
			{Name: "order_number", Type: catalog.TypeInteger},
		},
		PrimaryKey: []string{"id"},
		ForeignKeys: []catalog.ForeignKey{
			{Name: "fk_items_order", Columns: []string{"order_region", "order_number"}, RefTable: "orders", RefColumns: []string{"region", "number"}},
		},
	}
	snap := catalog.NewSnapshot(1, []*catalog.Table{orders, items})

	rels, warnings := relation.Resolve(snap)
	assert.Empty(t, warnings)
	require.Len(t, rels, 1, "a composite key is one relationship, not one per column")
	assert.Equal(t, "orders", rels[0].Name, "composite keys fall back to the target table name")
	assert.Equal(t, []string{"order_region", "order_number"}, rels[0].SourceColumns)
	assert.Equal(t, relation.ManyToOne, rels[0].Cardinality)
}

func TestResolveSelfReference(t *testing.T) {
	categories := &catalog.Table{
		Name: "categories",
		Columns: []catalog.Column{
			{Name: "id", Type: catalog.TypeInteger, PrimaryKey: true},
			{Name: "parent_id", Type: catalog.TypeInteger, Nullable: true},
		},
		PrimaryKey: []string{"id"},
		ForeignKeys: []catalog.ForeignKey{
			{Name: "fk_parent", Columns: []string{"parent_id"}, RefTable: "categories", RefColumns: []string{"id"}},
		},
	}
	snap := catalog.NewSnapshot(1, []*catalog.Table{categories})

	rels, _ := relation.Resolve(snap)
	require.Len(t, rels, 1)
	assert.Equal(t, "parent", rels[0].Name)
	assert.Equal(t, "categories", rels[0].SourceTable)
	assert.Equal(t, "categories", rels[0].TargetTable)
}

func TestResolveUnresolvedKeysSkipped(t *testing.T) {
	posts := &catalog.Table{
		Name: "posts",
		Columns: []catalog.Column{
			{Name: "id", Type: catalog.TypeInteger, PrimaryKey: true},
			{Name: "user_id", Type: catalog.TypeInteger},
		},
		PrimaryKey: []string{"id"},
		ForeignKeys: []catalog.ForeignKey{
			{Name: "fk_ghost", Columns: []string{"user_id"}, RefTable: "missing", RefColumns: []string{"id"}, Unresolved: true},
		},
	}
	snap := catalog.NewSnapshot(1, []*catalog.Table{posts})

	rels, _ := relation.Resolve(snap)
	assert.Empty(t, rels)
}

func TestResolveAmbiguousNamesQualified(t *testing.T) {
	users := &catalog.Table{
		Name:       "users",
		Columns:    []catalog.Column{{Name: "id", Type: catalog.TypeInteger, PrimaryKey: true}},
		PrimaryKey: []string{"id"},
	}
	messages := &catalog.Table{
		Name: "messages",
		Columns: []catalog.Column{
			{Name: "id", Type: catalog.TypeInteger, PrimaryKey: true},
			{Name: "sender", Type: catalog.TypeInteger},
			{Name: "recipient", Type: catalog.TypeInteger},
		},
		PrimaryKey: []string{"id"},
		ForeignKeys: []catalog.ForeignKey{
			{Name: "fk_sender", Columns: []string{"sender"}, RefTable: "users", RefColumns: []string{"id"}},
			{Name: "fk_recipient", Columns: []string{"recipient"}, RefTable: "users", RefColumns: []string{"id"}},
		},
	}
	snap := catalog.NewSnapshot(1, []*catalog.Table{users, messages})

	rels, warnings := relation.Resolve(snap)
	require.Len(t, rels, 2)
	// Neither column carries an _id suffix, so both land on "users" and get
	// qualified by their column tuples.
	assert.Equal(t, "users_by_sender", rels[0].Name)
	assert.Equal(t, "users_by_recipient", rels[1].Name)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].String(), "multiple foreign keys")
}

func TestResolveJunctionManyToMany(t *testing.T) {
	posts := &catalog.Table{
		Name:       "posts",
		Columns:    []catalog.Column{{Name: "id", Type: catalog.TypeInteger, PrimaryKey: true}},
		PrimaryKey: []string{"id"},
	}
	tags := &catalog.Table{
		Name:       "tags",
		Columns:    []catalog.Column{{Name: "id", Type: catalog.TypeInteger, PrimaryKey: true}},
		PrimaryKey: []string{"id"},
	}
	postTags := &catalog.Table{
		Name: "post_tags",
		Columns: []catalog.Column{
			{Name: "post_id", Type: catalog.TypeInteger, PrimaryKey: true},
			{Name: "tag_id", Type: catalog.TypeInteger, PrimaryKey: true},
		},
		PrimaryKey: []string{"post_id", "tag_id"},
		ForeignKeys: []catalog.ForeignKey{
			{Name: "fk_pt_post", Columns: []string{"post_id"}, RefTable: "posts", RefColumns: []string{"id"}},
			{Name: "fk_pt_tag", Columns: []string{"tag_id"}, RefTable: "tags", RefColumns: []string{"id"}},
		},
	}
	snap := catalog.NewSnapshot(1, []*catalog.Table{posts, tags, postTags})

	rels, warnings := relation.Resolve(snap)
	assert.Empty(t, warnings)

	var m2m []relation.Relationship
	for _, r := range rels {
		if r.Cardinality == relation.ManyToMany {
			m2m = append(m2m, r)
		}
	}
	require.Len(t, m2m, 2, "one many-to-many per direction")

	forward := m2m[0]
	assert.Equal(t, "posts", forward.SourceTable)
	assert.Equal(t, "tags", forward.TargetTable)
	require.NotNil(t, forward.Junction)
	assert.Equal(t, "post_tags", forward.Junction.Table)
	assert.Equal(t, []string{"post_id"}, forward.Junction.SourceColumns)
	assert.Equal(t, []string{"tag_id"}, forward.Junction.TargetColumns)
}

func TestResolvePayloadTableIsNotJunction(t *testing.T) {
	posts := &catalog.Table{
		Name:       "posts",
		Columns:    []catalog.Column{{Name: "id", Type: catalog.TypeInteger, PrimaryKey: true}},
		PrimaryKey: []string{"id"},
	}
	tags := &catalog.Table{
		Name:       "tags",
		Columns:    []catalog.Column{{Name: "id", Type: catalog.TypeInteger, PrimaryKey: true}},
		PrimaryKey: []string{"id"},
	}
	// The extra column makes this an entity in its own right.
	taggings := &catalog.Table{
		Name: "taggings",
		Columns: []catalog.Column{
			{Name: "post_id", Type: catalog.TypeInteger, PrimaryKey: true},
			{Name: "tag_id", Type: catalog.TypeInteger, PrimaryKey: true},
			{Name: "created_by", Type: catalog.TypeText},
		},
		PrimaryKey: []string{"post_id", "tag_id"},
		ForeignKeys: []catalog.ForeignKey{
			{Name: "fk_t_post", Columns: []string{"post_id"}, RefTable: "posts", RefColumns: []string{"id"}},
			{Name: "fk_t_tag", Columns: []string{"tag_id"}, RefTable: "tags", RefColumns: []string{"id"}},
		},
	}
	snap := catalog.NewSnapshot(1, []*catalog.Table{posts, tags, taggings})

	rels, _ := relation.Resolve(snap)
	for _, r := range rels {
		assert.NotEqual(t, relation.ManyToMany, r.Cardinality)
	}
}
