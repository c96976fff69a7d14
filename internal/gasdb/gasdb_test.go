package gasdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rubiojr/gasrank/pkg/api"
	"github.com/rubiojr/gasrank/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	latest  *api.GasStationList
	history map[string]*api.GasStationList
	failing map[string]bool
	calls   []string
}

func (f *fakeFetcher) FetchPrices(ctx context.Context) (*api.GasStationList, error) {
	f.calls = append(f.calls, "latest")
	return f.latest, nil
}

func (f *fakeFetcher) FetchPricesForDate(ctx context.Context, date time.Time) (*api.GasStationList, error) {
	day := date.Format(dateLayout)
	f.calls = append(f.calls, day)
	if f.failing[day] {
		return nil, errors.New("unavailable")
	}
	if list, ok := f.history[day]; ok {
		return list, nil
	}
	return listWith("h-" + day), nil
}

func listWith(ids ...string) *api.GasStationList {
	list := &api.GasStationList{ResultadoConsulta: api.ApiResultOK}
	for _, id := range ids {
		list.ListaEESSPrecio = append(list.ListaEESSPrecio, api.GasStation{
			IDEESS:             id,
			Rotulo:             "STATION " + id,
			Latitud:            "40,416800",
			Longitud:           "-3,703800",
			PrecioGasolina95E5: "1,529",
		})
	}
	return list
}

func newTestStorage(t *testing.T) (*Storage, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(now)
	s, err := NewStorage(context.Background(), filepath.Join(t.TempDir(), "test.db"), nil,
		WithClock(clock), WithPause(0))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, clock
}

func TestEmptyStorage(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	_, err := s.GetLastPrices(ctx)
	assert.ErrorIs(t, err, ErrNoData)

	last, err := s.GetLastUpdateDate(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	_, err = s.GetPrices(ctx, now)
	assert.ErrorIs(t, err, ErrNoData)

	dates, err := s.GetAllDates(ctx)
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestUpdateStoresTodaysSnapshot(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()
	f := &fakeFetcher{latest: listWith("1", "2")}

	require.NoError(t, s.Update(ctx, f))

	has, err := s.HasDate(ctx, now)
	require.NoError(t, err)
	assert.True(t, has)

	last, err := s.GetLastUpdateDate(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "2026-10-17", last.Format(dateLayout))

	stations, err := s.Stations(ctx)
	require.NoError(t, err)
	require.Len(t, stations, 2)
	assert.Equal(t, "1", stations[0].ID)
	assert.Equal(t, 1.529, stations[0].Price(geo.Gasoline95))
}

func TestUpdateRejectsNonOK(t *testing.T) {
	s, _ := newTestStorage(t)
	f := &fakeFetcher{latest: &api.GasStationList{ResultadoConsulta: "ERROR"}}
	assert.Error(t, s.Update(context.Background(), f))
}

func TestSavePricesInvalidatesCache(t *testing.T) {
	s, clock := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, &fakeFetcher{latest: listWith("1")}))
	first, err := s.GetLastPrices(ctx)
	require.NoError(t, err)
	require.Len(t, first.ListaEESSPrecio, 1)

	clock.Advance(24 * time.Hour)
	require.NoError(t, s.Update(ctx, &fakeFetcher{latest: listWith("1", "2", "3")}))

	second, err := s.GetLastPrices(ctx)
	require.NoError(t, err)
	assert.Len(t, second.ListaEESSPrecio, 3)

	older, err := s.GetPrices(ctx, now)
	require.NoError(t, err)
	assert.Len(t, older.ListaEESSPrecio, 1)
}

func TestUpdateAllBackfillsMissingDays(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	// 2026-10-14 is already stored and must not be fetched again
	require.NoError(t, s.saveList(ctx, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), listWith("x")))

	f := &fakeFetcher{
		latest:  listWith("today"),
		failing: map[string]bool{"2026-10-15": true},
	}
	start := time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpdateAll(ctx, f, start))

	assert.Equal(t, []string{"2026-10-13", "2026-10-15", "2026-10-16", "latest"}, f.calls)

	dates, err := s.GetAllDates(ctx)
	require.NoError(t, err)
	var got []string
	for _, d := range dates {
		got = append(got, d.Format(dateLayout))
	}
	assert.Equal(t, []string{"2026-10-13", "2026-10-14", "2026-10-16", "2026-10-17"}, got)

	missing, err := s.MissingDates(ctx, start, now)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "2026-10-15", missing[0].Format(dateLayout))
}

func TestNearbyPrices(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	list := listWith("madrid")
	far := listWith("zaragoza").ListaEESSPrecio[0]
	far.Latitud, far.Longitud = "41,6488", "-0,8891"
	broken := listWith("broken").ListaEESSPrecio[0]
	broken.Latitud = ""
	list.ListaEESSPrecio = append(list.ListaEESSPrecio, far, broken)
	require.NoError(t, s.Update(ctx, &fakeFetcher{latest: list}))

	nearby, err := s.NearbyPrices(ctx, 40.4168, -3.7038, 5000)
	require.NoError(t, err)
	require.Len(t, nearby, 1)
	assert.Equal(t, "madrid", nearby[0].IDEESS)

	// second call is served from the cache
	again, err := s.NearbyPrices(ctx, 40.4168, -3.7038, 5000)
	require.NoError(t, err)
	assert.Equal(t, nearby, again)
}

func TestDeleteOldRecords(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	for _, day := range []int{1, 5, 16} {
		require.NoError(t, s.saveList(ctx, time.Date(2026, 10, day, 0, 0, 0, 0, time.UTC), listWith("x")))
	}

	deleted, err := s.DeleteOldRecords(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	dates, err := s.GetAllDates(ctx)
	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.Equal(t, 16, dates[0].Day())

	require.NoError(t, s.VacuumDatabase(ctx))
}
