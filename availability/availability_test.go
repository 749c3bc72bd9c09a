package availability

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel-booking/database"
	"hotel-booking/models"
)

func unitWith(dates ...string) models.RoomUnit {
	unit := models.RoomUnit{ID: "u", Number: 1}
	for _, d := range dates {
		unit.UnavailableDates = append(unit.UnavailableDates, models.UnitDate{Date: d})
	}
	return unit
}

func TestIsAvailable(t *testing.T) {
	empty := unitWith()
	assert.True(t, IsAvailable(empty, day("2025-01-01"), day("2025-12-31")))

	booked := unitWith("2025-03-10", "2025-03-11", "2025-03-12")
	cases := []struct {
		in, out string
		want    bool
	}{
		{"2025-03-01", "2025-03-09", true},
		{"2025-03-13", "2025-03-20", true},
		{"2025-03-09", "2025-03-10", false},
		{"2025-03-12", "2025-03-14", false},
		{"2025-03-11", "2025-03-11", false},
		{"2025-03-01", "2025-03-31", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsAvailable(booked, day(tc.in), day(tc.out)), "%s..%s", tc.in, tc.out)
	}

	// time of day is ignored
	evening := day("2025-03-09").Add(22 * time.Hour)
	assert.True(t, IsAvailable(booked, evening, evening))
}

type testFixture struct {
	store  database.Store
	engine *Engine
	room   *models.Room
}

func newFixture(t *testing.T, numbers ...int) *testFixture {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	store, err := database.InitDatabase(ctx, database.Options{Driver: database.DriverSQLite, Path: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(ctx) })

	hotel := &models.Hotel{Name: "H", Type: "hotel", City: "Berlin", Address: "x", CheapestPrice: 10}
	require.NoError(t, store.CreateHotel(ctx, hotel))
	room := &models.Room{Title: "Double", Price: 100, MaxPeople: 2}
	for _, n := range numbers {
		room.RoomNumbers = append(room.RoomNumbers, models.RoomUnit{Number: n})
	}
	require.NoError(t, store.CreateRoom(ctx, hotel.ID, room))

	return &testFixture{
		store:  store,
		engine: NewEngine(store, nil, 5*time.Second),
		room:   room,
	}
}

func (f *testFixture) reload(t *testing.T) models.Room {
	t.Helper()
	room, err := f.store.GetRoom(context.Background(), f.room.ID)
	require.NoError(t, err)
	return *room
}

func TestReserveThreeUnits(t *testing.T) {
	f := newFixture(t, 101, 102, 103)
	ci, co := day("2025-03-10"), day("2025-03-12")
	a, b := f.room.RoomNumbers[0], f.room.RoomNumbers[1]

	results := f.engine.Reserve(context.Background(), []string{a.ID}, ci, co)
	require.Len(t, results, 1)
	assert.Equal(t, StatusReserved, results[0].Status)

	room := f.reload(t)
	assert.False(t, IsAvailable(room.RoomNumbers[0], ci, co))
	assert.True(t, IsAvailable(room.RoomNumbers[1], ci, co))
	assert.Equal(t, 2, CountAvailable(room, ci, co))

	// every sub-range of the stay is taken
	for d := ci; !d.After(co); d = d.AddDate(0, 0, 1) {
		for e := d; !e.After(co); e = e.AddDate(0, 0, 1) {
			assert.False(t, IsAvailable(room.RoomNumbers[0], d, e))
		}
	}

	report := RoomReport(room, ci, co)
	assert.Equal(t, 2, report.Available)
	assert.Equal(t, "2025-03-10", report.CheckIn)
	require.Len(t, report.Units, 3)
	assert.Equal(t, UnitAvailability{UnitID: a.ID, Number: 101, Available: false}, report.Units[0])
	assert.Equal(t, UnitAvailability{UnitID: b.ID, Number: 102, Available: true}, report.Units[1])
}

func TestCountAvailableNonIncreasing(t *testing.T) {
	f := newFixture(t, 1, 2, 3, 4)
	ci, co := day("2025-06-01"), day("2025-06-03")

	prev := CountAvailable(f.reload(t), ci, co)
	assert.Equal(t, 4, prev)
	for _, unit := range f.room.RoomNumbers {
		f.engine.Reserve(context.Background(), []string{unit.ID}, ci, co)
		room := f.reload(t)
		n := CountAvailable(room, ci, co)
		assert.LessOrEqual(t, n, prev)

		free := 0
		for _, u := range room.RoomNumbers {
			if IsAvailable(u, ci, co) {
				free++
			}
		}
		assert.Equal(t, free, n)
		prev = n
	}
	assert.Equal(t, 0, prev)
}

func TestReserveOverlapConflicts(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	unit := f.room.RoomNumbers[0]

	require.NoError(t, f.engine.ReserveDates(ctx, unit.ID, DatesBetween(day("2025-03-10"), day("2025-03-12"))))

	err := f.engine.ReserveDates(ctx, unit.ID, DatesBetween(day("2025-03-12"), day("2025-03-14")))
	assert.ErrorIs(t, err, database.ErrConflict)

	room := f.reload(t)
	assert.Len(t, room.RoomNumbers[0].UnavailableDates, 3)
	assert.True(t, IsAvailable(room.RoomNumbers[0], day("2025-03-13"), day("2025-03-14")))
}

func TestConcurrentReserveOneWins(t *testing.T) {
	f := newFixture(t, 1)
	unit := f.room.RoomNumbers[0]
	ci, co := day("2025-04-01"), day("2025-04-05")

	const workers = 8
	var wg sync.WaitGroup
	results := make([]Result, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// staggered overlapping ranges
			start := ci.AddDate(0, 0, i%3)
			results[i] = f.engine.Reserve(context.Background(), []string{unit.ID}, start, co)[0]
		}(i)
	}
	wg.Wait()

	won := 0
	for _, r := range results {
		switch r.Status {
		case StatusReserved:
			won++
		default:
			assert.Equal(t, StatusConflict, r.Status)
		}
	}
	assert.Equal(t, 1, won)
}

func TestReserveBatchPartial(t *testing.T) {
	f := newFixture(t, 1, 2)
	ctx := context.Background()
	a, b := f.room.RoomNumbers[0], f.room.RoomNumbers[1]
	ci, co := day("2025-05-01"), day("2025-05-02")

	require.NoError(t, f.engine.ReserveDates(ctx, b.ID, []time.Time{co}))

	results := f.engine.Reserve(ctx, []string{a.ID, "missing", b.ID, a.ID}, ci, co)
	require.Len(t, results, 3)
	assert.Equal(t, StatusReserved, results[0].Status)
	assert.Equal(t, StatusNotFound, results[1].Status)
	assert.Equal(t, StatusConflict, results[2].Status)
	assert.NotEmpty(t, results[2].Message)

	room := f.reload(t)
	assert.False(t, IsAvailable(room.RoomNumbers[0], ci, co))
	assert.Len(t, room.RoomNumbers[1].UnavailableDates, 1)
}

type blockingLocker struct{}

func (blockingLocker) Acquire(ctx context.Context, _ string, _ time.Duration) (func(), error) {
	<-ctx.Done()
	return nil, fmt.Errorf("%w: %v", ErrLocked, ctx.Err())
}

func TestReserveLocked(t *testing.T) {
	f := newFixture(t, 1)
	engine := NewEngine(f.store, blockingLocker{}, 20*time.Millisecond)

	results := engine.Reserve(context.Background(), []string{f.room.RoomNumbers[0].ID}, day("2025-01-01"), day("2025-01-01"))
	require.Len(t, results, 1)
	assert.Equal(t, StatusLocked, results[0].Status)
	assert.Empty(t, f.reload(t).RoomNumbers[0].UnavailableDates)
}
