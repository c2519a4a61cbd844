package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"crew-radar/internal/model"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound 表示记录不存在。
var ErrNotFound = errors.New("not found")

// Config 描述数据库连接。Driver 为 sqlite（默认）或 mysql。
type Config struct {
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"dsn"`
}

// Outcome 表示单条写入的结果。
type Outcome int

const (
	OutcomeInserted Outcome = iota + 1
	OutcomeUpdated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// BatchResult 表示批量写入的统计。
type BatchResult struct {
	Inserted int
	Updated  int
	Failed   int
	// NewJobs 为本批新增的职位（同批内后续更新会覆盖为最新版本）。
	NewJobs []model.Job
	Errors  []string
}

// Store 封装数据库访问，负责职位去重写入、抓取记录与订阅的增删查。
type Store struct {
	db     *gorm.DB
	now    func() time.Time
	logger *log.Logger
}

// 命中已有记录时覆盖的列；id 与 created_at 不在其中。
var mutableColumns = []string{
	"title", "company", "location", "country", "region",
	"employment_type", "department", "vessel_type", "vessel_size", "vessel_name", "position_level",
	"salary_range", "salary_currency", "salary_period", "start_date",
	"description", "requirements", "benefits",
	"source_url", "raw_data", "quality_score",
	"posted_date", "scraped_at", "updated_at",
}

// NewStore 打开数据库并自动迁移数据表。
func NewStore(cfg Config) (*Store, error) {
	logger := log.New(os.Stdout, "[storage] ", log.LstdFlags)
	s := &Store{now: time.Now, logger: logger}

	dialector, err := openDialector(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		NowFunc: func() time.Time { return s.now() },
		Logger: gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName(cfg), err)
	}

	if err := db.AutoMigrate(&model.Job{}, &model.ScrapeRun{}, &model.Subscription{}); err != nil {
		return nil, fmt.Errorf("auto migrate models: %w", err)
	}

	s.db = db
	return s, nil
}

func driverName(cfg Config) string {
	d := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if d == "" {
		return "sqlite"
	}
	return d
}

func openDialector(cfg Config) (gorm.Dialector, error) {
	switch driverName(cfg) {
	case "sqlite", "sqlite3":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = filepath.Join("data", "crew-radar.db")
		}
		if !strings.HasPrefix(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		return sqlite.Open(dsn), nil
	case "mysql":
		if cfg.DSN == "" {
			return nil, errors.New("mysql driver requires a dsn")
		}
		return mysql.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// WithClock 替换时间来源，测试用。
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// WithLogger 替换日志输出。
func (s *Store) WithLogger(logger *log.Logger) *Store {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Close 关闭底层数据库连接。
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// Ping 检查数据库连通性。
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Upsert 按 (source, external_id) 插入或更新单条职位。
// 命中时保留 ID 与 CreatedAt；未命中时生成新的代理主键。job 会被回填。
func (s *Store) Upsert(ctx context.Context, job *model.Job) (Outcome, error) {
	return s.upsertOne(s.db.WithContext(ctx), job)
}

// UpsertJobs 在单个事务中按顺序写入一批职位，每条记录使用独立保存点：
// 单条失败只回滚该条，其余照常提交。同一自然键在批内出现多次时后者覆盖前者。
// 返回 error 仅表示事务本身失败，此时整批未提交。
func (s *Store) UpsertJobs(ctx context.Context, jobs []model.Job) (BatchResult, error) {
	var res BatchResult
	if len(jobs) == 0 {
		return res, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res = BatchResult{}
		newIndex := make(map[string]int)
		for i := range jobs {
			job := &jobs[i]
			var outcome Outcome
			err := tx.Transaction(func(sp *gorm.DB) error {
				var err error
				outcome, err = s.upsertOne(sp, job)
				return err
			})
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				res.Failed++
				msg := fmt.Sprintf("%s: %v", job.Key(), err)
				res.Errors = append(res.Errors, msg)
				s.logf("upsert_failed key=%s err=%v", job.Key(), err)
				continue
			}

			switch outcome {
			case OutcomeInserted:
				res.Inserted++
				newIndex[job.Key()] = len(res.NewJobs)
				res.NewJobs = append(res.NewJobs, *job)
			case OutcomeUpdated:
				res.Updated++
				if idx, ok := newIndex[job.Key()]; ok {
					res.NewJobs[idx] = *job
				}
			}
		}
		return nil
	})
	if err != nil {
		return BatchResult{}, fmt.Errorf("upsert batch: %w", err)
	}
	return res, nil
}

func (s *Store) upsertOne(db *gorm.DB, job *model.Job) (Outcome, error) {
	if strings.TrimSpace(job.ExternalID) == "" || job.Source == "" {
		return 0, errors.New("missing natural key")
	}
	now := s.now()

	var existing model.Job
	err := db.Select("id", "created_at").
		Where("source = ? AND external_id = ?", job.Source, job.ExternalID).
		Take(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if job.ID == "" {
			job.ID = uuid.NewString()
		}
		job.CreatedAt = now
		job.UpdatedAt = now
		if err := db.Create(job).Error; err != nil {
			return 0, fmt.Errorf("insert job: %w", err)
		}
		return OutcomeInserted, nil
	case err != nil:
		return 0, fmt.Errorf("find job: %w", err)
	}

	job.ID = existing.ID
	job.CreatedAt = existing.CreatedAt
	job.UpdatedAt = now
	tx := db.Model(&model.Job{ID: existing.ID}).Select(mutableColumns).Updates(job)
	if tx.Error != nil {
		return 0, fmt.Errorf("update job: %w", tx.Error)
	}
	return OutcomeUpdated, nil
}

// FindByKey 按自然键查找职位。
func (s *Store) FindByKey(ctx context.Context, source model.Source, externalID string) (*model.Job, error) {
	var job model.Job
	err := s.db.WithContext(ctx).Where("source = ? AND external_id = ?", source, externalID).Take(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find by key: %w", err)
	}
	return &job, nil
}

// GetJob 根据 ID 获取职位。
func (s *Store) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	if err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &job, nil
}

func (s *Store) logf(format string, args ...any) {
	if s.logger == nil {
		s.logger = log.New(os.Stdout, "[storage] ", log.LstdFlags)
	}
	s.logger.Printf(format, args...)
}
