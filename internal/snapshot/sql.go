package snapshot

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-cart/internal/repo"
	"github.com/angelmondragon/storefront-cart/pkg/db"
	"github.com/angelmondragon/storefront-cart/pkg/db/models"
)

// SQL stores snapshots in the cart_snapshots table, one row per key.
type SQL struct {
	repo.Base
}

func NewSQL(conn *gorm.DB) (*SQL, error) {
	if conn == nil {
		return nil, fmt.Errorf("db connection required")
	}
	return &SQL{Base: repo.NewBase(conn)}, nil
}

func (s *SQL) LoadSnapshot(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	var row models.CartSnapshot
	err := s.DB(ctx).
		Where("session_key = ?", key).
		First(&row).Error
	if db.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return []byte(row.Payload), nil
}

func (s *SQL) SaveSnapshot(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	row := models.CartSnapshot{SessionKey: key, Payload: string(data)}
	err := s.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

func (s *SQL) DeleteSnapshot(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := s.DB(ctx).
		Where("session_key = ?", key).
		Delete(&models.CartSnapshot{}).Error; err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// PruneBefore deletes rows not updated since cutoff.
func (s *SQL) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.DB(ctx).
		Where("updated_at < ?", cutoff).
		Delete(&models.CartSnapshot{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune snapshots: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *SQL) Ping(ctx context.Context) error {
	sqlDB, err := s.SQLDB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
