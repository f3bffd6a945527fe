// Package storage 提供嵌入式 SQLite 之上的有界遥测存储：
// 三类记录各自独立的保留上限、过滤查询、span 树重建与时间桶聚合。
//
// 插入与其保留裁剪在同一个事务里执行，并以互斥锁串行化，
// 保证裁剪判定读到的行数是一致快照。已提交的行绝不因为
// 后续插入失败而丢失；插入失败向调用方硬性传播。
package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/HelgeSverre/llmflow-sub000/types"
)

// ErrNotFound 表示按标识查询的记录不存在。
var ErrNotFound = errors.New("record not found")

// RetentionConfig 是按记录类别的保留上限（行数，不是字节或时长）。
// 0 表示该类别不设上限。
type RetentionConfig struct {
	MaxSpans   int `yaml:"max_spans" json:"max_spans"`
	MaxLogs    int `yaml:"max_logs" json:"max_logs"`
	MaxMetrics int `yaml:"max_metrics" json:"max_metrics"`
}

// DefaultRetention 返回默认保留上限。
func DefaultRetention() RetentionConfig {
	return RetentionConfig{MaxSpans: 50000, MaxLogs: 100000, MaxMetrics: 200000}
}

// InsertHook 在一条记录成功落库后被调用（广播钩子）。
// kind 是 spans / logs / metrics 之一。钩子在事务之外触发，
// 不允许阻塞插入路径。
type InsertHook func(kind string, record any)

// InsertObserver 上报一次落库耗时（含保留裁剪），按表区分。
type InsertObserver func(table string, duration time.Duration)

// Store 是三类遥测记录的共享存储。
type Store struct {
	db        *gorm.DB
	retention RetentionConfig
	logger    *zap.Logger

	writeMu  sync.Mutex
	hook     InsertHook
	observer InsertObserver
	nowFn    func() int64 // epoch ms，测试可注入
}

// Open 打开（必要时创建）SQLite 存储并迁移表结构。
// path 为 ":memory:" 时使用内存库。
func Open(path string, retention RetentionConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if err := db.AutoMigrate(&types.Span{}, &types.LogRecord{}, &types.MetricPoint{}); err != nil {
		return nil, fmt.Errorf("migrate telemetry tables: %w", err)
	}

	return &Store{
		db:        db,
		retention: retention,
		logger:    logger.With(zap.String("component", "storage")),
		nowFn:     func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// SetInsertHook 注册插入广播钩子。
func (s *Store) SetInsertHook(hook InsertHook) { s.hook = hook }

// SetInsertObserver 注册落库耗时上报回调。
func (s *Store) SetInsertObserver(observer InsertObserver) { s.observer = observer }

// Close 关闭底层连接。
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InsertSpan 原子地插入一条 Span 并在行数越限时裁掉最旧的行。
func (s *Store) InsertSpan(span *types.Span) error {
	if err := s.insert(span, "spans", "start_time", s.retention.MaxSpans); err != nil {
		return err
	}
	s.publish("spans", span)
	return nil
}

// InsertLog 原子地插入一条 LogRecord 并执行保留裁剪。
func (s *Store) InsertLog(record *types.LogRecord) error {
	if err := s.insert(record, "log_records", "timestamp", s.retention.MaxLogs); err != nil {
		return err
	}
	s.publish("logs", record)
	return nil
}

// InsertMetric 原子地插入一条 MetricPoint 并执行保留裁剪。
func (s *Store) InsertMetric(point *types.MetricPoint) error {
	if err := s.insert(point, "metric_points", "timestamp", s.retention.MaxMetrics); err != nil {
		return err
	}
	s.publish("metrics", point)
	return nil
}

func (s *Store) insert(record any, table, timeCol string, ceiling int) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.observer != nil {
		start := time.Now()
		defer func() { s.observer(table, time.Since(start)) }()
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return &types.Error{
				Code:       types.ErrStorageFailure,
				Message:    fmt.Sprintf("insert into %s: %v", table, err),
				HTTPStatus: 500,
			}
		}
		return evict(tx, table, timeCol, ceiling)
	})
}

// evict 保留按时间最新的 ceiling 行，删除其余。
// row_id 作并列时间戳的决胜项，保证"最新 N 行"定义稳定。
func evict(tx *gorm.DB, table, timeCol string, ceiling int) error {
	if ceiling <= 0 {
		return nil
	}
	stmt := fmt.Sprintf(
		"DELETE FROM %s WHERE row_id NOT IN (SELECT row_id FROM %s ORDER BY %s DESC, row_id DESC LIMIT ?)",
		table, table, timeCol,
	)
	if err := tx.Exec(stmt, ceiling).Error; err != nil {
		return fmt.Errorf("evict %s beyond %d rows: %w", table, ceiling, err)
	}
	return nil
}

func (s *Store) publish(kind string, record any) {
	if s.hook == nil {
		return
	}
	s.hook(kind, record)
}
