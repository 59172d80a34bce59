package loader_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"db-lens/internal/catalog"
	"db-lens/internal/dialect"
	"db-lens/internal/loader"
	"db-lens/internal/relation"
)

// fakeExec serves canned rows per table and counts queries. Single-column IN
// queries are filtered by the bound args so the tests exercise real key
// batching; composite queries return the whole table.
type fakeExec struct {
	mu      sync.Mutex
	tables  map[string][]loader.Row
	queries int
}

func (f *fakeExec) Query(ctx context.Context, query string, args []any) ([]loader.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++

	table := tableOf(query)
	rows, ok := f.tables[table]
	if !ok {
		return nil, fmt.Errorf("unexpected table %q in query %q", table, query)
	}

	col, filtered := inColumn(query)
	if !filtered {
		return rows, nil
	}
	want := make(map[string]bool, len(args))
	for _, a := range args {
		want[fmt.Sprint(a)] = true
	}
	var out []loader.Row
	for _, row := range rows {
		if want[fmt.Sprint(row[col])] {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeExec) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

func tableOf(query string) string {
	_, after, _ := strings.Cut(query, " FROM `")
	table, _, _ := strings.Cut(after, "`")
	return table
}

func inColumn(query string) (string, bool) {
	_, after, ok := strings.Cut(query, "WHERE `")
	if !ok {
		return "", false
	}
	col, rest, _ := strings.Cut(after, "`")
	if !strings.HasPrefix(rest, " IN (") {
		return "", false
	}
	return col, true
}

func blogSnapshot() *catalog.Snapshot {
	return catalog.NewSnapshot(1, []*catalog.Table{
		{
			Name: "users",
			Columns: []catalog.Column{
				{Name: "id", Type: catalog.TypeInteger, PrimaryKey: true},
				{Name: "name", Type: catalog.TypeText},
			},
			PrimaryKey: []string{"id"},
		},
		{
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
		},
		{
			Name: "comments",
			Columns: []catalog.Column{
				{Name: "id", Type: catalog.TypeInteger, PrimaryKey: true},
				{Name: "post_id", Type: catalog.TypeInteger},
				{Name: "body", Type: catalog.TypeText},
			},
			PrimaryKey: []string{"id"},
			ForeignKeys: []catalog.ForeignKey{
				{Name: "fk_comments_post", Columns: []string{"post_id"}, RefTable: "posts", RefColumns: []string{"id"}},
			},
		},
	})
}

func newLoader(t *testing.T, exec loader.Executor, snap *catalog.Snapshot) *loader.Loader {
	t.Helper()
	rels, _ := relation.Resolve(snap)
	g, _ := relation.NewGraph(rels)
	strategy, err := dialect.Get("mysql")
	require.NoError(t, err)
	return loader.New(exec, strategy, g, snap, nil)
}

func TestLoadManyToOne(t *testing.T) {
	exec := &fakeExec{tables: map[string][]loader.Row{
		"users": {
			{"id": 1, "name": "ada"},
			{"id": 2, "name": "grace"},
		},
	}}
	snap := blogSnapshot()
	l := newLoader(t, exec, snap)

	posts := []*loader.Record{
		loader.NewRecord("posts", loader.Row{"id": 10, "user_id": 1}),
		loader.NewRecord("posts", loader.Row{"id": 11, "user_id": 2}),
		loader.NewRecord("posts", loader.Row{"id": 12, "user_id": 1}),
	}
	require.NoError(t, l.Load(context.Background(), posts, "user"))

	assert.Equal(t, 1, exec.count(), "three posts, one query")

	author, ok := l.Attachments().One(posts[0], "user")
	require.True(t, ok)
	assert.Equal(t, "ada", author.Get("name"))

	author, _ = l.Attachments().One(posts[1], "user")
	assert.Equal(t, "grace", author.Get("name"))

	// Shared parent: both posts resolve to the same record.
	first, _ := l.Attachments().One(posts[0], "user")
	second, _ := l.Attachments().One(posts[2], "user")
	assert.Same(t, first, second)
}

func TestLoadOneToMany(t *testing.T) {
	exec := &fakeExec{tables: map[string][]loader.Row{
		"posts": {
			{"id": 10, "user_id": 1, "title": "first"},
			{"id": 11, "user_id": 1, "title": "second"},
			{"id": 12, "user_id": 2, "title": "third"},
		},
	}}
	snap := blogSnapshot()
	l := newLoader(t, exec, snap)

	users := []*loader.Record{
		loader.NewRecord("users", loader.Row{"id": 1, "name": "ada"}),
		loader.NewRecord("users", loader.Row{"id": 2, "name": "grace"}),
		loader.NewRecord("users", loader.Row{"id": 3, "name": "alan"}),
	}
	require.NoError(t, l.Load(context.Background(), users, "posts"))

	assert.Equal(t, 1, exec.count())

	adas, ok := l.Attachments().Related(users[0], "posts")
	require.True(t, ok)
	assert.Len(t, adas, 2)

	graces, _ := l.Attachments().Related(users[1], "posts")
	assert.Len(t, graces, 1)

	// No posts at all is still "loaded": an explicit empty list.
	alans, ok := l.Attachments().Related(users[2], "posts")
	require.True(t, ok)
	assert.Empty(t, alans)
}

func TestLoadNullJoinKey(t *testing.T) {
	exec := &fakeExec{tables: map[string][]loader.Row{
		"users": {{"id": 1, "name": "ada"}},
	}}
	l := newLoader(t, exec, blogSnapshot())

	posts := []*loader.Record{
		loader.NewRecord("posts", loader.Row{"id": 10, "user_id": nil}),
		loader.NewRecord("posts", loader.Row{"id": 11, "user_id": 1}),
	}
	require.NoError(t, l.Load(context.Background(), posts, "user"))

	orphanAuthor, ok := l.Attachments().One(posts[0], "user")
	assert.True(t, ok, "a null key is loaded-and-absent, not an error")
	assert.Nil(t, orphanAuthor)

	author, _ := l.Attachments().One(posts[1], "user")
	require.NotNil(t, author)
	assert.Equal(t, "ada", author.Get("name"))
}

func TestLoadEmptyStringJoinKey(t *testing.T) {
	// An empty string is a legitimate text key and must not be treated as
	// null: only a missing or nil value means the relation is absent.
	snap := catalog.NewSnapshot(1, []*catalog.Table{
		{
			Name: "regions",
			Columns: []catalog.Column{
				{Name: "code", Type: catalog.TypeText, PrimaryKey: true},
				{Name: "name", Type: catalog.TypeText},
			},
			PrimaryKey: []string{"code"},
		},
		{
			Name: "stores",
			Columns: []catalog.Column{
				{Name: "id", Type: catalog.TypeInteger, PrimaryKey: true},
				{Name: "region_code", Type: catalog.TypeText, Nullable: true},
			},
			PrimaryKey: []string{"id"},
			ForeignKeys: []catalog.ForeignKey{
				{Name: "fk_stores_region", Columns: []string{"region_code"}, RefTable: "regions", RefColumns: []string{"code"}},
			},
		},
	})
	exec := &fakeExec{tables: map[string][]loader.Row{
		"regions": {
			{"code": "", "name": "unassigned"},
			{"code": "eu", "name": "europe"},
		},
	}}
	l := newLoader(t, exec, snap)

	stores := []*loader.Record{
		loader.NewRecord("stores", loader.Row{"id": 1, "region_code": ""}),
		loader.NewRecord("stores", loader.Row{"id": 2, "region_code": "eu"}),
		loader.NewRecord("stores", loader.Row{"id": 3, "region_code": nil}),
	}
	require.NoError(t, l.Load(context.Background(), stores, "regions"))

	assert.Equal(t, 1, exec.count())

	region, ok := l.Attachments().One(stores[0], "regions")
	require.True(t, ok)
	require.NotNil(t, region, "an empty-string key still joins")
	assert.Equal(t, "unassigned", region.Get("name"))

	region, _ = l.Attachments().One(stores[1], "regions")
	require.NotNil(t, region)
	assert.Equal(t, "europe", region.Get("name"))

	region, ok = l.Attachments().One(stores[2], "regions")
	assert.True(t, ok)
	assert.Nil(t, region, "only a null key loads as absent")
}

func TestLoadAllNullKeysIssueNoQuery(t *testing.T) {
	exec := &fakeExec{tables: map[string][]loader.Row{"users": {}}}
	l := newLoader(t, exec, blogSnapshot())

	posts := []*loader.Record{
		loader.NewRecord("posts", loader.Row{"id": 10, "user_id": nil}),
		loader.NewRecord("posts", loader.Row{"id": 11, "user_id": nil}),
	}
	require.NoError(t, l.Load(context.Background(), posts, "user"))
	assert.Zero(t, exec.count())
}

func TestLoadMissingTarget(t *testing.T) {
	exec := &fakeExec{tables: map[string][]loader.Row{
		"users": {{"id": 1, "name": "ada"}},
	}}
	l := newLoader(t, exec, blogSnapshot())

	posts := []*loader.Record{
		loader.NewRecord("posts", loader.Row{"id": 10, "user_id": 99}),
	}
	require.NoError(t, l.Load(context.Background(), posts, "user"))

	author, ok := l.Attachments().One(posts[0], "user")
	assert.True(t, ok)
	assert.Nil(t, author, "a dangling key loads as absent")
}

func TestLoadEmptySource(t *testing.T) {
	exec := &fakeExec{tables: map[string][]loader.Row{}}
	l := newLoader(t, exec, blogSnapshot())

	require.NoError(t, l.Load(context.Background(), nil, "user"))
	assert.Zero(t, exec.count())
}

func TestLoadUnknownRelationship(t *testing.T) {
	exec := &fakeExec{tables: map[string][]loader.Row{}}
	l := newLoader(t, exec, blogSnapshot())

	posts := []*loader.Record{loader.NewRecord("posts", loader.Row{"id": 1})}
	err := l.Load(context.Background(), posts, "likes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no relationship")
}

func TestLoadMultiHopPath(t *testing.T) {
	exec := &fakeExec{tables: map[string][]loader.Row{
		"posts": {{"id": 10, "user_id": 1, "title": "first"}},
		"users": {{"id": 1, "name": "ada"}},
	}}
	l := newLoader(t, exec, blogSnapshot())

	comments := []*loader.Record{
		loader.NewRecord("comments", loader.Row{"id": 100, "post_id": 10}),
		loader.NewRecord("comments", loader.Row{"id": 101, "post_id": 10}),
	}
	require.NoError(t, l.Load(context.Background(), comments, "post.user"))

	assert.Equal(t, 2, exec.count(), "one query per hop")

	post, ok := l.Attachments().One(comments[0], "post")
	require.True(t, ok)
	require.NotNil(t, post)
	author, ok := l.Attachments().One(post, "user")
	require.True(t, ok)
	assert.Equal(t, "ada", author.Get("name"))
}

func TestLoadQueryCountIsBounded(t *testing.T) {
	gofakeit.Seed(11)

	for _, n := range []int{1, 10, 10000} {
		users := make([]loader.Row, 50)
		for i := range users {
			users[i] = loader.Row{"id": i + 1, "name": gofakeit.Name()}
		}
		exec := &fakeExec{tables: map[string][]loader.Row{"users": users}}
		l := newLoader(t, exec, blogSnapshot())

		posts := make([]*loader.Record, n)
		for i := range posts {
			posts[i] = loader.NewRecord("posts", loader.Row{"id": i, "user_id": i%50 + 1})
		}
		require.NoError(t, l.Load(context.Background(), posts, "user"))
		assert.Equal(t, 1, exec.count(), "n=%d", n)
	}
}

func TestLoadAllConcurrentPaths(t *testing.T) {
	exec := &fakeExec{tables: map[string][]loader.Row{
		"users":    {{"id": 1, "name": "ada"}},
		"comments": {{"id": 100, "post_id": 10, "body": "nice"}},
	}}
	l := newLoader(t, exec, blogSnapshot())

	posts := []*loader.Record{
		loader.NewRecord("posts", loader.Row{"id": 10, "user_id": 1}),
	}
	require.NoError(t, l.LoadAll(context.Background(), posts, "user", "comments"))

	assert.Equal(t, 2, exec.count())

	author, _ := l.Attachments().One(posts[0], "user")
	require.NotNil(t, author)
	comments, ok := l.Attachments().Related(posts[0], "comments")
	require.True(t, ok)
	assert.Len(t, comments, 1)
}

func TestLoadManyToMany(t *testing.T) {
	snap := catalog.NewSnapshot(1, []*catalog.Table{
		{
			Name:       "posts",
			Columns:    []catalog.Column{{Name: "id", Type: catalog.TypeInteger, PrimaryKey: true}},
			PrimaryKey: []string{"id"},
		},
		{
			Name: "tags",
			Columns: []catalog.Column{
				{Name: "id", Type: catalog.TypeInteger, PrimaryKey: true},
				{Name: "label", Type: catalog.TypeText},
			},
			PrimaryKey: []string{"id"},
		},
		{
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
		},
	})
	exec := &fakeExec{tables: map[string][]loader.Row{
		"post_tags": {
			{"post_id": 10, "tag_id": 1},
			{"post_id": 10, "tag_id": 2},
			{"post_id": 11, "tag_id": 2},
		},
		"tags": {
			{"id": 1, "label": "go"},
			{"id": 2, "label": "sql"},
		},
	}}
	l := newLoader(t, exec, snap)

	posts := []*loader.Record{
		loader.NewRecord("posts", loader.Row{"id": 10}),
		loader.NewRecord("posts", loader.Row{"id": 11}),
		loader.NewRecord("posts", loader.Row{"id": 12}),
	}
	require.NoError(t, l.Load(context.Background(), posts, "tags"))

	assert.Equal(t, 2, exec.count(), "junction hop is two queries regardless of fan-out")

	tags, ok := l.Attachments().Related(posts[0], "tags")
	require.True(t, ok)
	assert.Len(t, tags, 2)

	tags, _ = l.Attachments().Related(posts[1], "tags")
	require.Len(t, tags, 1)
	assert.Equal(t, "sql", tags[0].Get("label"))

	tags, ok = l.Attachments().Related(posts[2], "tags")
	require.True(t, ok)
	assert.Empty(t, tags)
}

func TestLoadCompositeKeyHop(t *testing.T) {
	snap := catalog.NewSnapshot(1, []*catalog.Table{
		{
			Name: "orders",
			Columns: []catalog.Column{
				{Name: "region", Type: catalog.TypeText, PrimaryKey: true},
				{Name: "number", Type: catalog.TypeInteger, PrimaryKey: true},
			},
			PrimaryKey: []string{"region", "number"},
		},
		{
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
		},
	})
	exec := &fakeExec{tables: map[string][]loader.Row{
		"orders": {
			{"region": "eu", "number": 7},
			{"region": "us", "number": 7},
		},
	}}
	l := newLoader(t, exec, snap)

	items := []*loader.Record{
		loader.NewRecord("order_items", loader.Row{"id": 1, "order_region": "eu", "order_number": 7}),
		loader.NewRecord("order_items", loader.Row{"id": 2, "order_region": "us", "order_number": 7}),
	}
	require.NoError(t, l.Load(context.Background(), items, "orders"))

	assert.Equal(t, 1, exec.count(), "composite keys still batch into one query")

	order, ok := l.Attachments().One(items[0], "orders")
	require.True(t, ok)
	require.NotNil(t, order)
	assert.Equal(t, "eu", order.Get("region"))

	order, _ = l.Attachments().One(items[1], "orders")
	require.NotNil(t, order)
	assert.Equal(t, "us", order.Get("region"))
}
