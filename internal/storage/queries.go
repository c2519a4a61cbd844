package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crew-radar/internal/model"

	"gorm.io/gorm"
)

// JobQuery 提供职位查询过滤条件。
type JobQuery struct {
	Source         model.Source
	EmploymentType model.EmploymentType
	Department     model.Department
	VesselType     model.VesselType
	Location       string
	Search         string
	MinQuality     float64
	PostedSince    time.Time
	Limit          int
	Offset         int
}

// Stats 是仪表盘统计。
type Stats struct {
	Total        int64            `json:"total_jobs"`
	Today        int64            `json:"new_today"`
	Week         int64            `json:"new_this_week"`
	AvgQuality   float64          `json:"avg_quality"`
	BySource     map[string]int64 `json:"by_source"`
	ByDepartment map[string]int64 `json:"by_department"`
}

// ListJobs 返回按发布时间倒序的职位列表。
func (s *Store) ListJobs(ctx context.Context, q JobQuery) ([]model.Job, error) {
	var jobs []model.Job
	query := applyJobFilters(s.db.WithContext(ctx).Model(&model.Job{}), q).
		Order("posted_date DESC").Order("created_at DESC")
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if err := query.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// CountJobs 返回满足过滤条件的职位数量。
func (s *Store) CountJobs(ctx context.Context, q JobQuery) (int64, error) {
	var total int64
	query := applyJobFilters(s.db.WithContext(ctx).Model(&model.Job{}), q)
	if err := query.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return total, nil
}

func applyJobFilters(db *gorm.DB, q JobQuery) *gorm.DB {
	if q.Source != "" {
		db = db.Where("source = ?", string(q.Source))
	}
	if q.EmploymentType != model.EmploymentUnknown {
		db = db.Where("employment_type = ?", q.EmploymentType.String())
	}
	if q.Department != model.DepartmentUnknown {
		db = db.Where("department = ?", q.Department.String())
	}
	if q.VesselType != model.VesselUnknown {
		db = db.Where("vessel_type = ?", q.VesselType.String())
	}
	if loc := strings.TrimSpace(q.Location); loc != "" {
		db = db.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(loc)+"%")
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		db = db.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if q.MinQuality > 0 {
		db = db.Where("quality_score >= ?", q.MinQuality)
	}
	if !q.PostedSince.IsZero() {
		db = db.Where("posted_date >= ?", q.PostedSince)
	}
	return db
}

// Stats 汇总职位总数、今日与本周新增、来源与部门分布。
func (s *Store) Stats(ctx context.Context, now time.Time) (Stats, error) {
	st := Stats{BySource: map[string]int64{}, ByDepartment: map[string]int64{}}
	db := s.db.WithContext(ctx).Model(&model.Job{})

	if err := db.Count(&st.Total).Error; err != nil {
		return st, fmt.Errorf("count total: %w", err)
	}
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := s.db.WithContext(ctx).Model(&model.Job{}).Where("created_at >= ?", startOfDay).Count(&st.Today).Error; err != nil {
		return st, fmt.Errorf("count today: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&model.Job{}).Where("created_at >= ?", now.AddDate(0, 0, -7)).Count(&st.Week).Error; err != nil {
		return st, fmt.Errorf("count week: %w", err)
	}

	var avg struct{ Avg float64 }
	if err := s.db.WithContext(ctx).Model(&model.Job{}).Select("COALESCE(AVG(quality_score), 0) AS avg").Scan(&avg).Error; err != nil {
		return st, fmt.Errorf("avg quality: %w", err)
	}
	st.AvgQuality = avg.Avg

	if err := s.groupCount(ctx, "source", st.BySource); err != nil {
		return st, err
	}
	if err := s.groupCount(ctx, "department", st.ByDepartment); err != nil {
		return st, err
	}
	return st, nil
}

func (s *Store) groupCount(ctx context.Context, column string, into map[string]int64) error {
	var rows []struct {
		Grp string
		N   int64
	}
	err := s.db.WithContext(ctx).Model(&model.Job{}).
		Select("COALESCE(" + column + ", '') AS grp, COUNT(*) AS n").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("group by %s: %w", column, err)
	}
	for _, r := range rows {
		into[r.Grp] = r.N
	}
	return nil
}

// RecordRun 保存一次抓取运行记录。
func (s *Store) RecordRun(ctx context.Context, run *model.ScrapeRun) error {
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// ListRuns 返回最近的运行记录，source 为空表示全部来源。
func (s *Store) ListRuns(ctx context.Context, source model.Source, limit int) ([]model.ScrapeRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []model.ScrapeRun
	query := s.db.WithContext(ctx).Order("started_at DESC").Order("id DESC").Limit(limit)
	if source != "" {
		query = query.Where("source = ?", string(source))
	}
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// LatestRuns 返回每个来源最近一次运行记录。
func (s *Store) LatestRuns(ctx context.Context) (map[model.Source]model.ScrapeRun, error) {
	var sources []string
	if err := s.db.WithContext(ctx).Model(&model.ScrapeRun{}).Distinct().Pluck("source", &sources).Error; err != nil {
		return nil, fmt.Errorf("list run sources: %w", err)
	}
	out := make(map[model.Source]model.ScrapeRun, len(sources))
	for _, src := range sources {
		var run model.ScrapeRun
		err := s.db.WithContext(ctx).Where("source = ?", src).Order("started_at DESC").Order("id DESC").Take(&run).Error
		if err != nil {
			return nil, fmt.Errorf("latest run %s: %w", src, err)
		}
		out[model.Source(src)] = run
	}
	return out, nil
}

// CreateSubscription 新增订阅。
func (s *Store) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

// ListSubscriptions 返回所有订阅记录。
func (s *Store) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	var subs []model.Subscription
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

// DeleteSubscription 删除订阅。
func (s *Store) DeleteSubscription(ctx context.Context, id uint) error {
	tx := s.db.WithContext(ctx).Delete(&model.Subscription{}, id)
	if tx.Error != nil {
		return fmt.Errorf("delete subscription: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
