package sources

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/user/bookmarksync/internal/db"
)

func TestFetchNewFiltersBothSignals(t *testing.T) {
	log, _ := observedLogger(t)
	src := &fakeSource{items: []db.Bookmark{bookmark("1"), bookmark("2"), bookmark("3")}}
	ledger := db.NewLedger("1")
	existing := db.NewURLSet(db.StatusURL("2"))

	got := slices.Collect(FetchNew(context.Background(), src, ledger, existing, log))

	assert.Equal(t, []string{"3"}, ids(got))
	assert.False(t, ledger.Has("2"), "filtering must not mark an item as processed")
}

func TestFetchNewExclusionTable(t *testing.T) {
	items := []db.Bookmark{bookmark("a"), bookmark("b"), bookmark("c"), bookmark("d")}

	cases := []struct {
		name     string
		ledger   []string
		existing []string
		want     []string
	}{
		{name: "nothing known", want: []string{"a", "b", "c", "d"}},
		{name: "ledger only", ledger: []string{"a", "c"}, want: []string{"b", "d"}},
		{name: "destination only", existing: []string{db.StatusURL("d")}, want: []string{"a", "b", "c"}},
		{name: "overlapping signals", ledger: []string{"a", "b"}, existing: []string{db.StatusURL("b"), db.StatusURL("c")}, want: []string{"d"}},
		{name: "everything known", ledger: []string{"a", "b", "c", "d"}, want: []string{}},
		{name: "unrelated urls", existing: []string{"https://example.com/a"}, want: []string{"a", "b", "c", "d"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			log, _ := observedLogger(t)
			src := &fakeSource{items: items}

			got := slices.Collect(FetchNew(context.Background(), src, db.NewLedger(tc.ledger...), db.NewURLSet(tc.existing...), log))

			assert.Equal(t, tc.want, ids(got))
		})
	}
}

func TestFetchNewKeepsItemsBeforeFailure(t *testing.T) {
	log, logs := observedLogger(t)
	src := &fakeSource{
		items: []db.Bookmark{bookmark("1"), bookmark("2")},
		err:   errors.New("rate limited"),
	}

	got := slices.Collect(FetchNew(context.Background(), src, db.NewLedger(), db.NewURLSet(), log))

	assert.Equal(t, []string{"1", "2"}, ids(got))
	assert.Equal(t, 1, logs.FilterField(zap.String("operation", "source.fetch")).Len())
}

func TestFetchNewSourceFailsImmediately(t *testing.T) {
	log, logs := observedLogger(t)
	src := &fakeSource{err: errors.New("401 unauthorized")}

	got := slices.Collect(FetchNew(context.Background(), src, db.NewLedger(), db.NewURLSet(), log))

	assert.Empty(t, got)
	assert.Equal(t, 1, logs.FilterLevelExact(zap.ErrorLevel).Len())
}

func TestFetchNewSkipsRepeatedIDs(t *testing.T) {
	log, _ := observedLogger(t)
	src := &fakeSource{items: []db.Bookmark{bookmark("1"), bookmark("2"), bookmark("1")}}

	got := slices.Collect(FetchNew(context.Background(), src, db.NewLedger(), db.NewURLSet(), log))

	assert.Equal(t, []string{"1", "2"}, ids(got))
}

func TestFetchNewSeesLedgerUpdatesWhileRanging(t *testing.T) {
	log, _ := observedLogger(t)
	src := &fakeSource{items: []db.Bookmark{bookmark("1"), bookmark("2")}}
	ledger := db.NewLedger()

	var got []string
	for b := range FetchNew(context.Background(), src, ledger, db.NewURLSet(), log) {
		got = append(got, b.ID)
		ledger.Add(bookmark("2"), b.CreatedAt)
	}

	assert.Equal(t, []string{"1"}, got)
}

func TestFetchNewStopsEarly(t *testing.T) {
	log, _ := observedLogger(t)
	src := &fakeSource{items: []db.Bookmark{bookmark("1"), bookmark("2"), bookmark("3")}}

	var got []string
	for b := range FetchNew(context.Background(), src, db.NewLedger(), db.NewURLSet(), log) {
		got = append(got, b.ID)
		if len(got) == 2 {
			break
		}
	}

	assert.Equal(t, []string{"1", "2"}, got)
}
