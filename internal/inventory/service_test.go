package inventory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiroakis/host-management-app/internal/logging"
	"github.com/hiroakis/host-management-app/internal/storage"
	"github.com/hiroakis/host-management-app/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.Open(storage.Options{
		Driver: "sqlite",
		DSN:    "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared",
		Logger: logging.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.InitSchema(context.Background()))
	return s
}

func newTestService(t *testing.T) (*Service, *storage.Storage, *recordingPublisher) {
	t.Helper()
	st := newTestStorage(t)
	pub := &recordingPublisher{}
	fixed := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	svc := NewService(st,
		WithLogger(logging.Discard()),
		WithPublisher(pub),
		WithClock(func() time.Time { return fixed }),
	)
	return svc, st, pub
}

// seed builds the web01/db01 inventory used across tests.
func seed(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()
	for _, r := range []string{"web", "app", "db"} {
		require.NoError(t, svc.AddRole(ctx, r))
	}
	for _, ip := range []string{"192.168.1.101", "192.168.1.111", "192.168.1.120"} {
		require.NoError(t, svc.AddIP(ctx, ip))
	}
	_, err := svc.RegisterHost(ctx, HostInput{HostName: "web01", IP: "192.168.1.101", Roles: []string{"web", "app"}})
	require.NoError(t, err)
	_, err = svc.RegisterHost(ctx, HostInput{HostName: "db01", IP: "192.168.1.111", Roles: []string{"db"}})
	require.NoError(t, err)
}

func ipUsed(t *testing.T, svc *Service, ip string) bool {
	t.Helper()
	records, err := svc.ListIPRecords(context.Background())
	require.NoError(t, err)
	for _, r := range records {
		if r.IP == ip {
			return r.IsUsed
		}
	}
	t.Fatalf("ip %s not present", ip)
	return false
}

func assertKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, KindOf(err), err.Error())
}

func TestAddIP(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddIP(ctx, "10.0.0.1"))
	assertKind(t, svc.AddIP(ctx, "10.0.0.1"), KindConflict)
	assertKind(t, svc.AddIP(ctx, "092.168.1.1"), KindInvalidInput)
	assertKind(t, svc.AddIP(ctx, "10.0.0"), KindInvalidInput)

	ips, err := svc.ListIPs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1"}, ips)
	assert.False(t, ipUsed(t, svc, "10.0.0.1"))
	assert.Equal(t, []EventType{EventIPAdded}, pub.types())
}

func TestListOrderIsByKey(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, ip := range []string{"10.0.0.2", "10.0.0.10", "10.0.0.1"} {
		require.NoError(t, svc.AddIP(ctx, ip))
	}
	for _, r := range []string{"web", "Web", "app"} {
		require.NoError(t, svc.AddRole(ctx, r))
	}

	ips, err := svc.ListIPs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.10", "10.0.0.2"}, ips)

	roles, err := svc.ListRoles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Web", "app", "web"}, roles)
}

func TestListIPsByUsage(t *testing.T) {
	svc, _, _ := newTestService(t)
	seed(t, svc)
	ctx := context.Background()

	used, err := svc.ListUsedIPs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"192.168.1.101", "192.168.1.111"}, used)

	unused, err := svc.ListUnusedIPs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"192.168.1.120"}, unused)

	all, err := svc.ListIPs(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUpdateIP(t *testing.T) {
	svc, _, _ := newTestService(t)
	seed(t, svc)
	ctx := context.Background()

	assertKind(t, svc.UpdateIP(ctx, "192.168.1.101", "bad"), KindInvalidInput)
	assertKind(t, svc.UpdateIP(ctx, "10.9.9.9", "10.9.9.8"), KindNotFound)
	assertKind(t, svc.UpdateIP(ctx, "192.168.1.101", "192.168.1.120"), KindConflict)
	require.NoError(t, svc.UpdateIP(ctx, "192.168.1.120", "192.168.1.120"))

	require.NoError(t, svc.UpdateIP(ctx, "192.168.1.101", "192.168.1.102"))
	assert.True(t, ipUsed(t, svc, "192.168.1.102"))

	host, err := svc.HostByName(ctx, "web01")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.102", host.IP)

	_, err = svc.HostByIP(ctx, "192.168.1.101")
	assertKind(t, err, KindNotFound)
}

func TestDeleteIP(t *testing.T) {
	svc, _, _ := newTestService(t)
	seed(t, svc)
	ctx := context.Background()

	assertKind(t, svc.DeleteIP(ctx, "192.168.1.101"), KindConflict)
	assert.True(t, ipUsed(t, svc, "192.168.1.101"))

	assertKind(t, svc.DeleteIP(ctx, "10.0.0.1"), KindNotFound)
	assertKind(t, svc.DeleteIP(ctx, "10.0.0"), KindInvalidInput)

	require.NoError(t, svc.DeleteIP(ctx, "192.168.1.120"))
	ips, err := svc.ListIPs(ctx)
	require.NoError(t, err)
	assert.NotContains(t, ips, "192.168.1.120")
}

func TestRoles(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddRole(ctx, "web"))
	assertKind(t, svc.AddRole(ctx, "web"), KindConflict)
	assertKind(t, svc.AddRole(ctx, strings.Repeat("x", 65)), KindInvalidInput)
	require.NoError(t, svc.AddRole(ctx, "Web"))

	roles, err := svc.ListRoles(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"web", "Web"}, roles)

	records, err := svc.ListRoleRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	assertKind(t, svc.UpdateRole(ctx, "nope", "other"), KindNotFound)
	assertKind(t, svc.UpdateRole(ctx, "web", "Web"), KindConflict)
	require.NoError(t, svc.UpdateRole(ctx, "web", "web"))

	assertKind(t, svc.DeleteRole(ctx, "nope"), KindNotFound)
	require.NoError(t, svc.DeleteRole(ctx, "Web"))
}

func TestUpdateRoleCascades(t *testing.T) {
	svc, _, _ := newTestService(t)
	seed(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.UpdateRole(ctx, "app", "api"))

	host, err := svc.HostByName(ctx, "web01")
	require.NoError(t, err)
	assert.Equal(t, []string{"web", "api"}, host.Roles)

	ips, err := svc.ListIPsByRole(ctx, "api")
	require.NoError(t, err)
	assert.Equal(t, []string{"192.168.1.101"}, ips)

	ips, err = svc.ListIPsByRole(ctx, "app")
	require.NoError(t, err)
	assert.Empty(t, ips)
}

func TestRegisterHost(t *testing.T) {
	svc, _, pub := newTestService(t)
	seed(t, svc)
	ctx := context.Background()

	byName, err := svc.HostByName(ctx, "web01")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"web", "app"}, byName.Roles)
	assert.Equal(t, "192.168.1.101", byName.IP)

	byIP, err := svc.HostByIP(ctx, "192.168.1.101")
	require.NoError(t, err)
	assert.Equal(t, "web01", byIP.HostName)
	assert.ElementsMatch(t, []string{"web", "app"}, byIP.Roles)
	assert.True(t, ipUsed(t, svc, "192.168.1.101"))

	assert.Contains(t, pub.types(), EventHostAdded)
}

func TestRegisterHostUsedIPRollsBack(t *testing.T) {
	svc, st, _ := newTestService(t)
	seed(t, svc)
	ctx := context.Background()

	_, err := svc.RegisterHost(ctx, HostInput{HostName: "web02", IP: "192.168.1.101", Roles: []string{"web"}})
	assertKind(t, err, KindConflict)

	_, err = svc.HostByName(ctx, "web02")
	assertKind(t, err, KindNotFound)

	maps, err := st.Repository().RoleMapsByHosts(ctx, []string{"web02"})
	require.NoError(t, err)
	assert.Empty(t, maps)
}

func TestRegisterHostParallel(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "srvadm.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	st, err := storage.Open(storage.Options{
		Driver:       "sqlite",
		DSN:          dsn,
		MaxOpenConns: 25,
		MaxIdleConns: 25,
		Logger:       logging.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	ctx := context.Background()
	require.NoError(t, st.InitSchema(ctx))

	svc := NewService(st, WithLogger(logging.Discard()))
	require.NoError(t, svc.AddRole(ctx, "web"))
	const n = 40
	for i := 0; i < n; i++ {
		require.NoError(t, svc.AddIP(ctx, fmt.Sprintf("10.0.1.%d", i+1)))
	}
	require.NoError(t, svc.AddIP(ctx, "10.0.2.1"))

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.RegisterHost(ctx, HostInput{
				HostName: fmt.Sprintf("web%02d", i+1),
				IP:       fmt.Sprintf("10.0.1.%d", i+1),
				Roles:    []string{"web"},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	// Hosts racing for one address: exactly one wins.
	var winners atomic.Int32
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.RegisterHost(ctx, HostInput{
				HostName: fmt.Sprintf("app%02d", i+1),
				IP:       "10.0.2.1",
				Roles:    []string{"web"},
			})
			if err == nil {
				winners.Add(1)
			}
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)
	assert.Equal(t, int32(1), winners.Load())
	for err := range results {
		if err != nil {
			assertKind(t, err, KindConflict)
		}
	}

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, n+1, stats.Hosts)
}

func TestRegisterHostUnknownIP(t *testing.T) {
	svc, _, _ := newTestService(t)
	seed(t, svc)

	_, err := svc.RegisterHost(context.Background(), HostInput{HostName: "web02", IP: "10.1.1.1", Roles: []string{"web"}})
	assertKind(t, err, KindConflict)
}

func TestRegisterHostUnknownRoleRestoresIP(t *testing.T) {
	svc, _, _ := newTestService(t)
	seed(t, svc)
	ctx := context.Background()

	_, err := svc.RegisterHost(ctx, HostInput{HostName: "web02", IP: "192.168.1.120", Roles: []string{"nonexistent_role"}})
	assertKind(t, err, KindConflict)
	assert.Contains(t, err.Error(), "role not found")
	assert.False(t, ipUsed(t, svc, "192.168.1.120"))

	_, err = svc.HostByName(ctx, "web02")
	assertKind(t, err, KindNotFound)
}

func TestRegisterHostDuplicateName(t *testing.T) {
	svc, _, _ := newTestService(t)
	seed(t, svc)
	ctx := context.Background()

	_, err := svc.RegisterHost(ctx, HostInput{HostName: "web01", IP: "192.168.1.120", Roles: []string{"web"}})
	assertKind(t, err, KindConflict)
	assert.False(t, ipUsed(t, svc, "192.168.1.120"))
}

func TestRegisterHostNoRoles(t *testing.T) {
	svc, _, _ := newTestService(t)
	seed(t, svc)
	ctx := context.Background()

	rec, err := svc.RegisterHost(ctx, HostInput{HostName: "bare", IP: "192.168.1.120", Roles: []string{}})
	require.NoError(t, err)
	assert.Empty(t, rec.Roles)

	host, err := svc.HostByName(ctx, "bare")
	require.NoError(t, err)
	assert.Equal(t, []string{}, host.Roles)
}

func TestUpdateHost(t *testing.T) {
	svc, _, pub := newTestService(t)
	seed(t, svc)
	ctx := context.Background()

	rec, err := svc.UpdateHost(ctx, "web01", HostInput{
		HostName: "web-a",
		IP:       "192.168.1.120",
		Roles:    []string{"web", "cache", "web"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"web", "cache"}, rec.Roles)

	_, err = svc.HostByName(ctx, "web01")
	assertKind(t, err, KindNotFound)

	host, err := svc.HostByName(ctx, "web-a")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.120", host.IP)
	assert.Equal(t, []string{"web", "cache"}, host.Roles)

	assert.True(t, ipUsed(t, svc, "192.168.1.120"))
	assert.False(t, ipUsed(t, svc, "192.168.1.101"))
	assert.Contains(t, pub.types(), EventHostUpdated)
}

func TestUpdateHostFailures(t *testing.T) {
	svc, _, _ := newTestService(t)
	seed(t, svc)
	ctx := context.Background()

	_, err := svc.UpdateHost(ctx, "missing", HostInput{HostName: "x", IP: "192.168.1.120", Roles: []string{}})
	assertKind(t, err, KindNotFound)

	_, err = svc.UpdateHost(ctx, "web01", HostInput{HostName: "db01", IP: "192.168.1.101", Roles: []string{"web"}})
	assertKind(t, err, KindConflict)

	_, err = svc.UpdateHost(ctx, "web01", HostInput{HostName: "web01", IP: "192.168.1.111", Roles: []string{"web"}})
	assertKind(t, err, KindConflict)

	_, err = svc.UpdateHost(ctx, "web01", HostInput{HostName: "web01", IP: "10.10.10.10", Roles: []string{"web"}})
	assertKind(t, err, KindConflict)

	// Every failure rolled back, so web01 is untouched.
	host, err := svc.HostByName(ctx, "web01")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.101", host.IP)
	assert.Equal(t, []string{"web", "app"}, host.Roles)
	assert.True(t, ipUsed(t, svc, "192.168.1.101"))
}

func TestDeleteHost(t *testing.T) {
	svc, st, _ := newTestService(t)
	seed(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.DeleteHost(ctx, "web01"))

	_, err := svc.HostByName(ctx, "web01")
	assertKind(t, err, KindNotFound)
	assert.False(t, ipUsed(t, svc, "192.168.1.101"))

	maps, err := st.Repository().RoleMapsByHosts(ctx, []string{"web01"})
	require.NoError(t, err)
	assert.Empty(t, maps)

	require.NoError(t, svc.DeleteHost(ctx, "web01"))
}

func TestHostQueries(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ListHostsWithRoles(ctx)
	assertKind(t, err, KindNotFound)

	seed(t, svc)

	names, err := svc.ListHosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"web01", "db01"}, names)

	all, err := svc.ListHostsWithRoles(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, models.HostRecord{HostName: "db01", IP: "192.168.1.111", Roles: []string{"db"}}, all[1])

	table, err := svc.HostsTable(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, []models.HostEntry{{HostName: "web01", IP: "192.168.1.101"}}, table)

	_, err = svc.HostsTable(ctx, "nope")
	assertKind(t, err, KindNotFound)

	_, err = svc.HostsByRole(ctx, "nope")
	assertKind(t, err, KindNotFound)
}

func TestStats(t *testing.T) {
	svc, _, _ := newTestService(t)
	seed(t, svc)

	c, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, c.IPs)
	assert.Equal(t, 2, c.UsedIPs)
	assert.Equal(t, 1, c.UnusedIPs)
	assert.Equal(t, 3, c.Roles)
	assert.Equal(t, 2, c.Hosts)
	assert.Equal(t, 3, c.RoleMaps)
}

// TestInventoryScenario walks the web01/db01 inventory end to end.
func TestInventoryScenario(t *testing.T) {
	svc, _, _ := newTestService(t)
	seed(t, svc)
	ctx := context.Background()

	ips, err := svc.ListIPsByRole(ctx, "app")
	require.NoError(t, err)
	assert.Equal(t, []string{"192.168.1.101"}, ips)

	hosts, err := svc.HostsByRole(ctx, "db")
	require.NoError(t, err)
	assert.Equal(t, []models.HostRecord{{HostName: "db01", IP: "192.168.1.111", Roles: []string{"db"}}}, hosts)

	webHosts, err := svc.HostsByRole(ctx, "web")
	require.NoError(t, err)
	require.Len(t, webHosts, 1)
	assert.Equal(t, []string{"web", "app"}, webHosts[0].Roles)

	// Deleting a role still referenced by web01 succeeds.
	require.NoError(t, svc.DeleteRole(ctx, "app"))
	roles, err := svc.ListRoles(ctx)
	require.NoError(t, err)
	assert.NotContains(t, roles, "app")

	// The assignment is left dangling.
	host, err := svc.HostByName(ctx, "web01")
	require.NoError(t, err)
	assert.Contains(t, host.Roles, "app")
}

type failingStore struct{ err error }

func (f failingStore) RunInTx(context.Context, func(context.Context, storage.Repository) error) error {
	return f.err
}

func TestStoreFailuresAreInternal(t *testing.T) {
	svc := NewService(failingStore{err: errors.New("connection reset")}, WithLogger(logging.Discard()))

	_, err := svc.ListIPs(context.Background())
	assertKind(t, err, KindInternal)
	assert.ErrorIs(t, err, ErrInternal)

	svc = NewService(failingStore{err: storage.ErrDuplicate})
	err = svc.AddRole(context.Background(), "web")
	assertKind(t, err, KindConflict)
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}
