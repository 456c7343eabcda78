// Package inventory implements the IP, role and host inventory rules.
//
// Every Service operation runs inside a single store transaction. A failure
// at any step rolls back all writes made by that operation. Cascades between
// tables are explicit steps here rather than database foreign keys:
//   - renaming an IP re-points the host bound to it
//   - renaming a role rewrites its role assignments
//   - deleting a host removes its role assignments and frees its IP
//
// Errors are always *Error values carrying a Kind.
package inventory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hiroakis/host-management-app/internal/storage"
	"github.com/hiroakis/host-management-app/internal/validation"
	"github.com/hiroakis/host-management-app/models"
)

// Store runs inventory work in a transaction.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, repo storage.Repository) error) error
}

// Service exposes the inventory operations.
type Service struct {
	store     Store
	logger    *slog.Logger
	publisher Publisher
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for mutation records.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPublisher sets the receiver of committed change events.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock overrides the time source for host timestamps and events.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run executes fn in a transaction and classifies anything that is not
// already an *Error.
func (s *Service) run(ctx context.Context, op string, fn func(ctx context.Context, repo storage.Repository) error) error {
	err := s.store.RunInTx(ctx, fn)
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, storage.ErrDuplicate) {
		return newError(op, KindConflict, err)
	}
	return newError(op, KindInternal, err)
}

func (s *Service) publish(t EventType, data interface{}) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(Event{Type: t, Timestamp: s.now(), Data: data})
}

func (s *Service) mutated(op string, attrs ...any) {
	s.logger.Info("inventory changed", append([]any{slog.String("op", op)}, attrs...)...)
}

// IPs

// ListIPs returns every IP address in primary key order. The key is the
// address text, so 10.0.0.10 sorts before 10.0.0.2; insertion order is not
// kept.
func (s *Service) ListIPs(ctx context.Context) ([]string, error) {
	var out []string
	err := s.run(ctx, "list ip", func(ctx context.Context, repo storage.Repository) error {
		ips, err := repo.IPs(ctx)
		if err != nil {
			return err
		}
		out = ipValues(ips)
		return nil
	})
	return out, err
}

// ListUsedIPs returns the addresses bound to a host.
func (s *Service) ListUsedIPs(ctx context.Context) ([]string, error) {
	return s.listIPsByUsage(ctx, "list used ip", true)
}

// ListUnusedIPs returns the addresses free for registration.
func (s *Service) ListUnusedIPs(ctx context.Context) ([]string, error) {
	return s.listIPsByUsage(ctx, "list unused ip", false)
}

func (s *Service) listIPsByUsage(ctx context.Context, op string, used bool) ([]string, error) {
	var out []string
	err := s.run(ctx, op, func(ctx context.Context, repo storage.Repository) error {
		ips, err := repo.IPsByUsage(ctx, used)
		if err != nil {
			return err
		}
		out = ipValues(ips)
		return nil
	})
	return out, err
}

// ListIPRecords returns every IP with its used flag.
func (s *Service) ListIPRecords(ctx context.Context) ([]models.IP, error) {
	var out []models.IP
	err := s.run(ctx, "all ip", func(ctx context.Context, repo storage.Repository) error {
		var err error
		out, err = repo.IPs(ctx)
		return err
	})
	return out, err
}

// ListIPsByRole returns the IPs of every host holding role. An unknown role
// yields an empty list.
func (s *Service) ListIPsByRole(ctx context.Context, role string) ([]string, error) {
	out := []string{}
	err := s.run(ctx, "list ip by role", func(ctx context.Context, repo storage.Repository) error {
		hosts, err := hostsWithRole(ctx, repo, role)
		if err != nil {
			return err
		}
		for _, h := range hosts {
			out = append(out, h.IP)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// HostByIP returns the host bound to ip with its roles.
func (s *Service) HostByIP(ctx context.Context, ip string) (*models.HostRecord, error) {
	const op = "search by ip"
	var out *models.HostRecord
	err := s.run(ctx, op, func(ctx context.Context, repo storage.Repository) error {
		host, err := repo.HostByIP(ctx, ip)
		if errors.Is(err, storage.ErrNotFound) {
			return notFoundf(op, "no host has ip %s", ip)
		}
		if err != nil {
			return err
		}
		records, err := withRoles(ctx, repo, []models.Host{*host})
		if err != nil {
			return err
		}
		out = &records[0]
		return nil
	})
	return out, err
}

// AddIP registers a new unused address.
func (s *Service) AddIP(ctx context.Context, ip string) error {
	const op = "add ip"
	if !validation.IsValidIP(ip) {
		return invalidf(op, "invalid ip %q", ip)
	}

	err := s.run(ctx, op, func(ctx context.Context, repo storage.Repository) error {
		if _, err := repo.IP(ctx, ip); err == nil {
			return conflictf(op, "ip %s already exists", ip)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return repo.InsertIP(ctx, &models.IP{IP: ip, IsUsed: false})
	})
	if err != nil {
		return err
	}

	s.mutated(op, slog.String("ip", ip))
	s.publish(EventIPAdded, models.IP{IP: ip})
	return nil
}

// UpdateIP renames oldIP to newIP, keeping its used flag and re-pointing the
// host bound to it.
func (s *Service) UpdateIP(ctx context.Context, oldIP, newIP string) error {
	const op = "update ip"
	if !validation.IsValidIP(newIP) {
		return invalidf(op, "invalid ip %q", newIP)
	}

	err := s.run(ctx, op, func(ctx context.Context, repo storage.Repository) error {
		if _, err := repo.LockIP(ctx, oldIP); errors.Is(err, storage.ErrNotFound) {
			return notFoundf(op, "ip %s not found", oldIP)
		} else if err != nil {
			return err
		}
		if oldIP == newIP {
			return nil
		}
		if _, err := repo.IP(ctx, newIP); err == nil {
			return conflictf(op, "ip %s already exists", newIP)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		if err := repo.RenameIP(ctx, oldIP, newIP); err != nil {
			return err
		}
		_, err := repo.RetargetHosts(ctx, oldIP, newIP)
		return err
	})
	if err != nil {
		return err
	}

	s.mutated(op, slog.String("old", oldIP), slog.String("new", newIP))
	s.publish(EventIPUpdated, RenameData{Old: oldIP, New: newIP})
	return nil
}

// DeleteIP removes an unused address.
func (s *Service) DeleteIP(ctx context.Context, ip string) error {
	const op = "delete ip"
	if !validation.IsValidIP(ip) {
		return invalidf(op, "invalid ip %q", ip)
	}

	err := s.run(ctx, op, func(ctx context.Context, repo storage.Repository) error {
		rec, err := repo.LockIP(ctx, ip)
		if errors.Is(err, storage.ErrNotFound) {
			return notFoundf(op, "ip %s not found", ip)
		}
		if err != nil {
			return err
		}
		if rec.IsUsed {
			return conflictf(op, "ip %s is in use", ip)
		}
		_, err = repo.DeleteIP(ctx, ip)
		return err
	})
	if err != nil {
		return err
	}

	s.mutated(op, slog.String("ip", ip))
	s.publish(EventIPRemoved, models.IP{IP: ip})
	return nil
}

// Roles

// ListRoles returns every role name in primary key (byte-wise) order.
func (s *Service) ListRoles(ctx context.Context) ([]string, error) {
	roles, err := s.listRoles(ctx, "list role")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.RoleName)
	}
	return out, nil
}

// ListRoleRecords returns every role as a record.
func (s *Service) ListRoleRecords(ctx context.Context) ([]models.Role, error) {
	return s.listRoles(ctx, "all role")
}

func (s *Service) listRoles(ctx context.Context, op string) ([]models.Role, error) {
	var out []models.Role
	err := s.run(ctx, op, func(ctx context.Context, repo storage.Repository) error {
		var err error
		out, err = repo.Roles(ctx)
		return err
	})
	return out, err
}

// HostsByRole returns every host holding role, each with its full role list.
func (s *Service) HostsByRole(ctx context.Context, role string) ([]models.HostRecord, error) {
	const op = "search by role"
	var out []models.HostRecord
	err := s.run(ctx, op, func(ctx context.Context, repo storage.Repository) error {
		hosts, err := hostsWithRole(ctx, repo, role)
		if err != nil {
			return err
		}
		if len(hosts) == 0 {
			return notFoundf(op, "no host has role %s", role)
		}
		out, err = withRoles(ctx, repo, hosts)
		return err
	})
	return out, err
}

// AddRole creates a role.
func (s *Service) AddRole(ctx context.Context, name string) error {
	const op = "add role"
	if err := checkStruct(op, RoleInput{Role: name}); err != nil {
		return err
	}

	err := s.run(ctx, op, func(ctx context.Context, repo storage.Repository) error {
		if _, err := repo.Role(ctx, name); err == nil {
			return conflictf(op, "role %s already exists", name)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return repo.InsertRole(ctx, &models.Role{RoleName: name})
	})
	if err != nil {
		return err
	}

	s.mutated(op, slog.String("role", name))
	s.publish(EventRoleAdded, models.Role{RoleName: name})
	return nil
}

// UpdateRole renames a role and rewrites its assignments.
func (s *Service) UpdateRole(ctx context.Context, oldName, newName string) error {
	const op = "update role"
	if err := checkStruct(op, RoleInput{Role: newName}); err != nil {
		return err
	}

	err := s.run(ctx, op, func(ctx context.Context, repo storage.Repository) error {
		if _, err := repo.Role(ctx, oldName); errors.Is(err, storage.ErrNotFound) {
			return notFoundf(op, "role %s not found", oldName)
		} else if err != nil {
			return err
		}
		if oldName == newName {
			return nil
		}
		if _, err := repo.Role(ctx, newName); err == nil {
			return conflictf(op, "role %s already exists", newName)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		if err := repo.RenameRole(ctx, oldName, newName); err != nil {
			return err
		}
		_, err := repo.RenameRoleInMaps(ctx, oldName, newName)
		return err
	})
	if err != nil {
		return err
	}

	s.mutated(op, slog.String("old", oldName), slog.String("new", newName))
	s.publish(EventRoleUpdated, RenameData{Old: oldName, New: newName})
	return nil
}

// DeleteRole removes a role. Assignments that still name it are left in
// place; the integrity scanner reports them as dangling.
func (s *Service) DeleteRole(ctx context.Context, name string) error {
	const op = "delete role"
	err := s.run(ctx, op, func(ctx context.Context, repo storage.Repository) error {
		if _, err := repo.Role(ctx, name); errors.Is(err, storage.ErrNotFound) {
			return notFoundf(op, "role %s not found", name)
		} else if err != nil {
			return err
		}
		_, err := repo.DeleteRole(ctx, name)
		return err
	})
	if err != nil {
		return err
	}

	s.mutated(op, slog.String("role", name))
	s.publish(EventRoleRemoved, models.Role{RoleName: name})
	return nil
}

// Hosts

// ListHosts returns every host name in registration order.
func (s *Service) ListHosts(ctx context.Context) ([]string, error) {
	var out []string
	err := s.run(ctx, "list host", func(ctx context.Context, repo storage.Repository) error {
		hosts, err := repo.Hosts(ctx)
		if err != nil {
			return err
		}
		out = make([]string, 0, len(hosts))
		for _, h := range hosts {
			out = append(out, h.HostName)
		}
		return nil
	})
	return out, err
}

// HostByName returns a host with its roles.
func (s *Service) HostByName(ctx context.Context, name string) (*models.HostRecord, error) {
	const op = "search by host"
	var out *models.HostRecord
	err := s.run(ctx, op, func(ctx context.Context, repo storage.Repository) error {
		host, err := repo.Host(ctx, name)
		if errors.Is(err, storage.ErrNotFound) {
			return notFoundf(op, "host %s not found", name)
		}
		if err != nil {
			return err
		}
		records, err := withRoles(ctx, repo, []models.Host{*host})
		if err != nil {
			return err
		}
		out = &records[0]
		return nil
	})
	return out, err
}

// ListHostsWithRoles returns every host with its roles.
func (s *Service) ListHostsWithRoles(ctx context.Context) ([]models.HostRecord, error) {
	const op = "all host"
	var out []models.HostRecord
	err := s.run(ctx, op, func(ctx context.Context, repo storage.Repository) error {
		hosts, err := repo.Hosts(ctx)
		if err != nil {
			return err
		}
		if len(hosts) == 0 {
			return notFoundf(op, "inventory has no hosts")
		}
		out, err = withRoles(ctx, repo, hosts)
		return err
	})
	return out, err
}

// RegisterHost binds a new host to an unused IP with a set of existing roles.
func (s *Service) RegisterHost(ctx context.Context, in HostInput) (*models.HostRecord, error) {
	const op = "add host"
	if err := checkStruct(op, in); err != nil {
		return nil, err
	}

	now := s.now()
	record := &models.HostRecord{HostName: in.HostName, IP: in.IP, Roles: models.UniqueStrings(in.Roles)}

	err := s.run(ctx, op, func(ctx context.Context, repo storage.Repository) error {
		ip, err := repo.LockIP(ctx, in.IP)
		if errors.Is(err, storage.ErrNotFound) {
			return conflictf(op, "ip %s does not exist or used", in.IP)
		}
		if err != nil {
			return err
		}
		if ip.IsUsed {
			return conflictf(op, "ip %s does not exist or used", in.IP)
		}
		if _, err := repo.SetIPUsed(ctx, in.IP, true); err != nil {
			return err
		}

		roles, err := repo.RolesIn(ctx, in.Roles)
		if err != nil {
			return err
		}
		if len(roles) != len(in.Roles) {
			return conflictf(op, "role not found")
		}

		host := &models.Host{HostName: in.HostName, IP: in.IP, CreatedAt: now, UpdatedAt: now}
		if err := repo.InsertHost(ctx, host); errors.Is(err, storage.ErrDuplicate) {
			return conflictf(op, "host %s already exists", in.HostName)
		} else if err != nil {
			return err
		}
		return repo.InsertRoleMaps(ctx, roleMaps(in.HostName, in.Roles))
	})
	if err != nil {
		return nil, err
	}

	s.mutated(op, slog.String("host_name", in.HostName), slog.String("ip", in.IP))
	s.publish(EventHostAdded, *record)
	return record, nil
}

// UpdateHost replaces a host's name, IP and role set. Role names are not
// checked against the role table.
func (s *Service) UpdateHost(ctx context.Context, oldName string, in HostInput) (*models.HostRecord, error) {
	const op = "update host"
	if err := checkStruct(op, in); err != nil {
		return nil, err
	}

	record := &models.HostRecord{HostName: in.HostName, IP: in.IP, Roles: models.UniqueStrings(in.Roles)}

	err := s.run(ctx, op, func(ctx context.Context, repo storage.Repository) error {
		host, err := repo.LockHost(ctx, oldName)
		if errors.Is(err, storage.ErrNotFound) {
			return notFoundf(op, "host %s not found", oldName)
		}
		if err != nil {
			return err
		}

		if _, err := repo.DeleteRoleMapsByHost(ctx, oldName); err != nil {
			return err
		}

		priorIP := host.IP
		host.HostName = in.HostName
		host.IP = in.IP
		host.UpdatedAt = s.now()
		if err := repo.UpdateHost(ctx, host); errors.Is(err, storage.ErrDuplicate) {
			return conflictf(op, "host name or ip already taken")
		} else if err != nil {
			return err
		}
		if err := repo.InsertRoleMaps(ctx, roleMaps(in.HostName, record.Roles)); err != nil {
			return err
		}

		if in.IP != priorIP {
			if _, err := repo.LockIP(ctx, in.IP); errors.Is(err, storage.ErrNotFound) {
				return conflictf(op, "ip %s does not exist", in.IP)
			} else if err != nil {
				return err
			}
			if _, err := repo.SetIPUsed(ctx, in.IP, true); err != nil {
				return err
			}
			if _, err := repo.SetIPUsed(ctx, priorIP, false); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mutated(op, slog.String("old", oldName), slog.String("host_name", in.HostName), slog.String("ip", in.IP))
	s.publish(EventHostUpdated, HostUpdateData{Old: oldName, Host: *record})
	return record, nil
}

// DeleteHost removes a host and frees its IP. A missing host is not an
// error.
func (s *Service) DeleteHost(ctx context.Context, name string) error {
	const op = "delete host"
	var removed *models.Host
	err := s.run(ctx, op, func(ctx context.Context, repo storage.Repository) error {
		host, err := repo.LockHost(ctx, name)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if _, err := repo.DeleteRoleMapsByHost(ctx, host.HostName); err != nil {
			return err
		}
		if err := repo.DeleteHost(ctx, host.ID); err != nil {
			return err
		}
		if _, err := repo.SetIPUsed(ctx, host.IP, false); err != nil {
			return err
		}
		removed = host
		return nil
	})
	if err != nil || removed == nil {
		return err
	}

	s.mutated(op, slog.String("host_name", removed.HostName), slog.String("ip", removed.IP))
	s.publish(EventHostRemoved, models.HostEntry{HostName: removed.HostName, IP: removed.IP})
	return nil
}

// HostsTable returns ip and host name pairs for every host holding role.
func (s *Service) HostsTable(ctx context.Context, role string) ([]models.HostEntry, error) {
	const op = "output hosts"
	var out []models.HostEntry
	err := s.run(ctx, op, func(ctx context.Context, repo storage.Repository) error {
		hosts, err := hostsWithRole(ctx, repo, role)
		if err != nil {
			return err
		}
		if len(hosts) == 0 {
			return notFoundf(op, "no host has role %s", role)
		}
		out = make([]models.HostEntry, 0, len(hosts))
		for _, h := range hosts {
			out = append(out, models.HostEntry{HostName: h.HostName, IP: h.IP})
		}
		return nil
	})
	return out, err
}

// Stats returns inventory counts.
func (s *Service) Stats(ctx context.Context) (*storage.Counts, error) {
	var out *storage.Counts
	err := s.run(ctx, "stats", func(ctx context.Context, repo storage.Repository) error {
		var err error
		out, err = repo.Counts(ctx)
		return err
	})
	return out, err
}

// hostsWithRole resolves role assignments to the hosts that hold role.
func hostsWithRole(ctx context.Context, repo storage.Repository, role string) ([]models.Host, error) {
	maps, err := repo.RoleMapsByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(maps))
	for _, m := range maps {
		names = append(names, m.HostName)
	}
	return repo.HostsIn(ctx, models.UniqueStrings(names))
}

// withRoles attaches each host's role names in assignment order.
func withRoles(ctx context.Context, repo storage.Repository, hosts []models.Host) ([]models.HostRecord, error) {
	names := make([]string, 0, len(hosts))
	for _, h := range hosts {
		names = append(names, h.HostName)
	}
	maps, err := repo.RoleMapsByHosts(ctx, names)
	if err != nil {
		return nil, err
	}

	byHost := make(map[string][]string, len(hosts))
	for _, m := range maps {
		byHost[m.HostName] = append(byHost[m.HostName], m.RoleName)
	}

	records := make([]models.HostRecord, 0, len(hosts))
	for _, h := range hosts {
		roles := byHost[h.HostName]
		if roles == nil {
			roles = []string{}
		}
		records = append(records, models.HostRecord{HostName: h.HostName, IP: h.IP, Roles: roles})
	}
	return records, nil
}

func roleMaps(hostName string, roles []string) []models.RoleMap {
	maps := make([]models.RoleMap, 0, len(roles))
	for _, r := range roles {
		maps = append(maps, models.RoleMap{HostName: hostName, RoleName: r})
	}
	return maps
}

func ipValues(ips []models.IP) []string {
	out := make([]string, 0, len(ips))
	for _, ip := range ips {
		out = append(out, ip.IP)
	}
	return out
}
