package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
)

func statusPtr(s domain.TicketStatus) *domain.TicketStatus       { return &s }
func priorityPtr(p domain.TicketPriority) *domain.TicketPriority { return &p }
func sortPtr(s TicketSort) *TicketSort                           { return &s }
func orderPtr(o SortOrder) *SortOrder                            { return &o }
func boolPtr(b bool) *bool                                       { return &b }
func stringPtr(s string) *string                                 { return &s }

func TestBuildFilterWhere(t *testing.T) {
	tests := []struct {
		name      string
		filter    TicketFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "no filters only hides deleted rows",
			filter:    TicketFilter{},
			wantWhere: "NOT t.is_deleted",
			wantArgs:  []any{},
		},
		{
			name:      "concrete status matches equality",
			filter:    TicketFilter{Status: statusPtr(domain.TicketStatusResolved)},
			wantWhere: "NOT t.is_deleted AND t.status = $1",
			wantArgs:  []any{domain.TicketStatusResolved},
		},
		{
			name:      "unresolved pseudo-status becomes not-resolved",
			filter:    TicketFilter{Status: statusPtr(domain.TicketStatusUnresolved)},
			wantWhere: "NOT t.is_deleted AND t.status <> $1",
			wantArgs:  []any{domain.TicketStatusResolved},
		},
		{
			name:      "category filter",
			filter:    TicketFilter{CategoryID: stringPtr("category-1")},
			wantWhere: "NOT t.is_deleted AND t.category_id = $1",
			wantArgs:  []any{"category-1"},
		},
		{
			name:      "priority filter",
			filter:    TicketFilter{Priority: priorityPtr(domain.TicketPriorityHigh)},
			wantWhere: "NOT t.is_deleted AND t.priority = $1",
			wantArgs:  []any{domain.TicketPriorityHigh},
		},
		{
			name:      "is_read filter",
			filter:    TicketFilter{IsRead: boolPtr(false)},
			wantWhere: "NOT t.is_deleted AND t.is_read = $1",
			wantArgs:  []any{false},
		},
		{
			name:   "search keyword is lowercased, trimmed and wildcarded",
			filter: TicketFilter{SearchKeyword: stringPtr("  Login ")},
			wantWhere: "NOT t.is_deleted AND " +
				"(LOWER(t.customer_name) LIKE $1 OR LOWER(t.customer_email) LIKE $1 OR " +
				"LOWER(c.name) LIKE $1 OR LOWER(t.subject) LIKE $1 OR LOWER(t.message) LIKE $1)",
			wantArgs: []any{"%login%"},
		},
		{
			name:      "blank search keyword is ignored",
			filter:    TicketFilter{SearchKeyword: stringPtr("   ")},
			wantWhere: "NOT t.is_deleted",
			wantArgs:  []any{},
		},
		{
			name: "combined filters number placeholders in order",
			filter: TicketFilter{
				Status:     statusPtr(domain.TicketStatusUnresolved),
				CategoryID: stringPtr("category-1"),
				Priority:   priorityPtr(domain.TicketPriorityLow),
			},
			wantWhere: "NOT t.is_deleted AND t.status <> $1 AND t.category_id = $2 AND t.priority = $3",
			wantArgs:  []any{domain.TicketStatusResolved, "category-1", domain.TicketPriorityLow},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := buildFilterWhere(tt.filter)
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestOrderClause(t *testing.T) {
	tests := []struct {
		name    string
		sortBy  *TicketSort
		orderBy *SortOrder
		want    string
	}{
		{name: "defaults to newest first", want: "t.created_at DESC"},
		{name: "oldest direction", orderBy: orderPtr(SortOrderOldest), want: "t.created_at ASC"},
		{name: "recently added is explicit descending", orderBy: orderPtr(SortOrderRecentlyAdded), want: "t.created_at DESC"},
		{name: "status sort", sortBy: sortPtr(TicketSortStatus), want: "t.status DESC"},
		{name: "status sort oldest", sortBy: sortPtr(TicketSortStatus), orderBy: orderPtr(SortOrderOldest), want: "t.status ASC"},
		{name: "category sorts on joined name", sortBy: sortPtr(TicketSortCategory), want: "c.name DESC"},
		{name: "created_at sort is the default column", sortBy: sortPtr(TicketSortCreatedAt), want: "t.created_at DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderClause(tt.sortBy, tt.orderBy))
		})
	}
}

// recordingDB captures the SQL handed to QueryRow so query shape can be
// asserted without a live database.
type recordingDB struct {
	lastSQL  string
	lastArgs []any
	row      stubRow
}

func (db *recordingDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (db *recordingDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (db *recordingDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	db.lastSQL = sql
	db.lastArgs = args
	return db.row
}

type stubRow struct {
	values []any
}

func (r stubRow) Scan(dest ...any) error {
	for i, d := range dest {
		if i >= len(r.values) {
			break
		}
		if target, ok := d.(*int); ok {
			if value, ok := r.values[i].(int); ok {
				*target = value
			}
		}
	}
	return nil
}

func TestStatisticsQueryCastsAssigneeComparison(t *testing.T) {
	db := &recordingDB{row: stubRow{values: []any{5, 2, 1}}}
	repo := NewTicketRepository(db)

	stats, err := repo.Statistics(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.ResolvedCount)
	assert.Equal(t, 1, stats.AssignedCount)

	// The assignee column is UUID; both sides of the comparison must be
	// text, otherwise the empty-string sentinel fixes the parameter as text
	// and the statement fails to prepare with uuid = text.
	assert.Contains(t, db.lastSQL, "$3::text = ''")
	assert.Contains(t, db.lastSQL, "assigned_user_id::text = $3::text")
	assert.NotContains(t, db.lastSQL, "assigned_user_id = $3")
	require.Len(t, db.lastArgs, 3)
	assert.Equal(t, "user-1", db.lastArgs[2])
}
