package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/hiroakis/host-management-app/models"
)

// Repository is the query surface over the inventory tables.
//
// Point lookups return ErrNotFound when no row matches. Writes return
// ErrDuplicate on unique constraint violations. Methods named Lock* take a
// row lock on engines that support it and behave like plain lookups
// elsewhere.
type Repository interface {
	// Roles
	Roles(ctx context.Context) ([]models.Role, error)
	Role(ctx context.Context, name string) (*models.Role, error)
	RolesIn(ctx context.Context, names []string) ([]models.Role, error)
	InsertRole(ctx context.Context, role *models.Role) error
	RenameRole(ctx context.Context, oldName, newName string) error
	DeleteRole(ctx context.Context, name string) (int64, error)

	// IPs
	IPs(ctx context.Context) ([]models.IP, error)
	IPsByUsage(ctx context.Context, used bool) ([]models.IP, error)
	IP(ctx context.Context, addr string) (*models.IP, error)
	LockIP(ctx context.Context, addr string) (*models.IP, error)
	InsertIP(ctx context.Context, ip *models.IP) error
	RenameIP(ctx context.Context, oldAddr, newAddr string) error
	SetIPUsed(ctx context.Context, addr string, used bool) (int64, error)
	DeleteIP(ctx context.Context, addr string) (int64, error)

	// Hosts
	Hosts(ctx context.Context) ([]models.Host, error)
	Host(ctx context.Context, name string) (*models.Host, error)
	LockHost(ctx context.Context, name string) (*models.Host, error)
	HostByIP(ctx context.Context, addr string) (*models.Host, error)
	HostsIn(ctx context.Context, names []string) ([]models.Host, error)
	InsertHost(ctx context.Context, host *models.Host) error
	UpdateHost(ctx context.Context, host *models.Host) error
	RetargetHosts(ctx context.Context, oldAddr, newAddr string) (int64, error)
	DeleteHost(ctx context.Context, id int64) error

	// Role assignments
	RoleMaps(ctx context.Context) ([]models.RoleMap, error)
	RoleMapsByRole(ctx context.Context, role string) ([]models.RoleMap, error)
	RoleMapsByHosts(ctx context.Context, hostNames []string) ([]models.RoleMap, error)
	InsertRoleMaps(ctx context.Context, maps []models.RoleMap) error
	RenameRoleInMaps(ctx context.Context, oldName, newName string) (int64, error)
	DeleteRoleMapsByHost(ctx context.Context, hostName string) (int64, error)
	DeleteRoleMaps(ctx context.Context, ids []int64) (int64, error)

	Counts(ctx context.Context) (*Counts, error)
}

// Counts summarises table sizes.
type Counts struct {
	IPs       int `json:"ips"`
	UsedIPs   int `json:"used_ips"`
	UnusedIPs int `json:"unused_ips"`
	Roles     int `json:"roles"`
	Hosts     int `json:"hosts"`
	RoleMaps  int `json:"role_assignments"`
}

// bunRepository implements Repository over a bun.DB or bun.Tx.
type bunRepository struct {
	db   bun.IDB
	lock bool
}

// affected returns the row count of a write. MySQL reports changed rather
// than matched rows, so callers must not treat zero as a missing row.
func affected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, MapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Roles

func (r *bunRepository) Roles(ctx context.Context) ([]models.Role, error) {
	roles := make([]models.Role, 0)
	if err := r.db.NewSelect().Model(&roles).Order("role_name").Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	return roles, nil
}

func (r *bunRepository) Role(ctx context.Context, name string) (*models.Role, error) {
	role := new(models.Role)
	if err := r.db.NewSelect().Model(role).Where("role_name = ?", name).Limit(1).Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	return role, nil
}

func (r *bunRepository) RolesIn(ctx context.Context, names []string) ([]models.Role, error) {
	roles := make([]models.Role, 0)
	if len(names) == 0 {
		return roles, nil
	}
	if err := r.db.NewSelect().Model(&roles).Where("role_name IN (?)", bun.In(names)).Order("role_name").Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	return roles, nil
}

func (r *bunRepository) InsertRole(ctx context.Context, role *models.Role) error {
	_, err := r.db.NewInsert().Model(role).Exec(ctx)
	return MapDBError(err)
}

func (r *bunRepository) RenameRole(ctx context.Context, oldName, newName string) error {
	_, err := r.db.NewUpdate().Model((*models.Role)(nil)).
		Set("role_name = ?", newName).
		Where("role_name = ?", oldName).
		Exec(ctx)
	return MapDBError(err)
}

func (r *bunRepository) DeleteRole(ctx context.Context, name string) (int64, error) {
	return affected(r.db.NewDelete().Model((*models.Role)(nil)).Where("role_name = ?", name).Exec(ctx))
}

// IPs

func (r *bunRepository) IPs(ctx context.Context) ([]models.IP, error) {
	ips := make([]models.IP, 0)
	if err := r.db.NewSelect().Model(&ips).Order("ip").Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	return ips, nil
}

func (r *bunRepository) IPsByUsage(ctx context.Context, used bool) ([]models.IP, error) {
	ips := make([]models.IP, 0)
	if err := r.db.NewSelect().Model(&ips).Where("is_used = ?", used).Order("ip").Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	return ips, nil
}

func (r *bunRepository) IP(ctx context.Context, addr string) (*models.IP, error) {
	return r.selectIP(ctx, addr, false)
}

func (r *bunRepository) LockIP(ctx context.Context, addr string) (*models.IP, error) {
	return r.selectIP(ctx, addr, r.lock)
}

func (r *bunRepository) selectIP(ctx context.Context, addr string, forUpdate bool) (*models.IP, error) {
	ip := new(models.IP)
	q := r.db.NewSelect().Model(ip).Where("ip = ?", addr).Limit(1)
	if forUpdate {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	return ip, nil
}

func (r *bunRepository) InsertIP(ctx context.Context, ip *models.IP) error {
	_, err := r.db.NewInsert().Model(ip).Exec(ctx)
	return MapDBError(err)
}

func (r *bunRepository) RenameIP(ctx context.Context, oldAddr, newAddr string) error {
	_, err := r.db.NewUpdate().Model((*models.IP)(nil)).
		Set("ip = ?", newAddr).
		Where("ip = ?", oldAddr).
		Exec(ctx)
	return MapDBError(err)
}

func (r *bunRepository) SetIPUsed(ctx context.Context, addr string, used bool) (int64, error) {
	return affected(r.db.NewUpdate().Model((*models.IP)(nil)).
		Set("is_used = ?", used).
		Where("ip = ?", addr).
		Exec(ctx))
}

func (r *bunRepository) DeleteIP(ctx context.Context, addr string) (int64, error) {
	return affected(r.db.NewDelete().Model((*models.IP)(nil)).Where("ip = ?", addr).Exec(ctx))
}

// Hosts

func (r *bunRepository) Hosts(ctx context.Context) ([]models.Host, error) {
	hosts := make([]models.Host, 0)
	if err := r.db.NewSelect().Model(&hosts).Order("id").Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	return hosts, nil
}

func (r *bunRepository) Host(ctx context.Context, name string) (*models.Host, error) {
	return r.selectHost(ctx, "host_name = ?", name, false)
}

func (r *bunRepository) LockHost(ctx context.Context, name string) (*models.Host, error) {
	return r.selectHost(ctx, "host_name = ?", name, r.lock)
}

func (r *bunRepository) HostByIP(ctx context.Context, addr string) (*models.Host, error) {
	return r.selectHost(ctx, "ip = ?", addr, false)
}

func (r *bunRepository) selectHost(ctx context.Context, where string, arg string, forUpdate bool) (*models.Host, error) {
	host := new(models.Host)
	q := r.db.NewSelect().Model(host).Where(where, arg).Limit(1)
	if forUpdate {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	return host, nil
}

func (r *bunRepository) HostsIn(ctx context.Context, names []string) ([]models.Host, error) {
	hosts := make([]models.Host, 0)
	if len(names) == 0 {
		return hosts, nil
	}
	if err := r.db.NewSelect().Model(&hosts).Where("host_name IN (?)", bun.In(names)).Order("id").Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	return hosts, nil
}

func (r *bunRepository) InsertHost(ctx context.Context, host *models.Host) error {
	_, err := r.db.NewInsert().Model(host).Exec(ctx)
	return MapDBError(err)
}

func (r *bunRepository) UpdateHost(ctx context.Context, host *models.Host) error {
	_, err := r.db.NewUpdate().Model(host).
		Column("host_name", "ip", "updated_at").
		WherePK().
		Exec(ctx)
	return MapDBError(err)
}

func (r *bunRepository) RetargetHosts(ctx context.Context, oldAddr, newAddr string) (int64, error) {
	return affected(r.db.NewUpdate().Model((*models.Host)(nil)).
		Set("ip = ?", newAddr).
		Where("ip = ?", oldAddr).
		Exec(ctx))
}

func (r *bunRepository) DeleteHost(ctx context.Context, id int64) error {
	_, err := r.db.NewDelete().Model((*models.Host)(nil)).Where("id = ?", id).Exec(ctx)
	return MapDBError(err)
}

// Role assignments

func (r *bunRepository) RoleMaps(ctx context.Context) ([]models.RoleMap, error) {
	maps := make([]models.RoleMap, 0)
	if err := r.db.NewSelect().Model(&maps).Order("id").Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	return maps, nil
}

func (r *bunRepository) RoleMapsByRole(ctx context.Context, role string) ([]models.RoleMap, error) {
	maps := make([]models.RoleMap, 0)
	if err := r.db.NewSelect().Model(&maps).Where("role_name = ?", role).Order("id").Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	return maps, nil
}

func (r *bunRepository) RoleMapsByHosts(ctx context.Context, hostNames []string) ([]models.RoleMap, error) {
	maps := make([]models.RoleMap, 0)
	if len(hostNames) == 0 {
		return maps, nil
	}
	if err := r.db.NewSelect().Model(&maps).Where("host_name IN (?)", bun.In(hostNames)).Order("id").Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	return maps, nil
}

func (r *bunRepository) InsertRoleMaps(ctx context.Context, maps []models.RoleMap) error {
	if len(maps) == 0 {
		return nil
	}
	_, err := r.db.NewInsert().Model(&maps).Exec(ctx)
	return MapDBError(err)
}

func (r *bunRepository) RenameRoleInMaps(ctx context.Context, oldName, newName string) (int64, error) {
	return affected(r.db.NewUpdate().Model((*models.RoleMap)(nil)).
		Set("role_name = ?", newName).
		Where("role_name = ?", oldName).
		Exec(ctx))
}

func (r *bunRepository) DeleteRoleMapsByHost(ctx context.Context, hostName string) (int64, error) {
	return affected(r.db.NewDelete().Model((*models.RoleMap)(nil)).Where("host_name = ?", hostName).Exec(ctx))
}

func (r *bunRepository) DeleteRoleMaps(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return affected(r.db.NewDelete().Model((*models.RoleMap)(nil)).Where("id IN (?)", bun.In(ids)).Exec(ctx))
}

func (r *bunRepository) Counts(ctx context.Context) (*Counts, error) {
	var (
		c   Counts
		err error
	)
	if c.IPs, err = r.db.NewSelect().Model((*models.IP)(nil)).Count(ctx); err != nil {
		return nil, MapDBError(err)
	}
	if c.UsedIPs, err = r.db.NewSelect().Model((*models.IP)(nil)).Where("is_used = ?", true).Count(ctx); err != nil {
		return nil, MapDBError(err)
	}
	c.UnusedIPs = c.IPs - c.UsedIPs
	if c.Roles, err = r.db.NewSelect().Model((*models.Role)(nil)).Count(ctx); err != nil {
		return nil, MapDBError(err)
	}
	if c.Hosts, err = r.db.NewSelect().Model((*models.Host)(nil)).Count(ctx); err != nil {
		return nil, MapDBError(err)
	}
	if c.RoleMaps, err = r.db.NewSelect().Model((*models.RoleMap)(nil)).Count(ctx); err != nil {
		return nil, MapDBError(err)
	}
	return &c, nil
}
