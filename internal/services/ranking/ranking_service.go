// Package ranking aggregates calificaciones into the top-provider
// listing. Results are cached in Redis with a short TTL; cache
// failures fall through to the database.
package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type TopProveedor struct {
	ProveedorID uuid.UUID `json:"proveedor_id"`
	Nombre      string    `json:"nombre"`
	Promedio    float64   `json:"promedio"`
	Total       int64     `json:"total"`
}

type Service struct {
	DB  *gorm.DB
	RDB *redis.Client
	TTL time.Duration
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{DB: db, RDB: rdb, TTL: 60 * time.Second}
}

// TopProveedores returns up to n providers ordered by average score,
// considering only providers with at least minResenas ratings.
func (s *Service) TopProveedores(ctx context.Context, n int, minResenas int64) ([]TopProveedor, error) {
	if n <= 0 {
		n = 10
	}
	if minResenas < 1 {
		minResenas = 1
	}

	key := fmt.Sprintf("ranking:proveedores:%d:%d", n, minResenas)
	if s.RDB != nil {
		if raw, err := s.RDB.Get(ctx, key).Bytes(); err == nil {
			var cached []TopProveedor
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
	}

	var top []TopProveedor
	err := s.DB.WithContext(ctx).
		Table("calificaciones").
		Select(`calificaciones.proveedor_id AS proveedor_id,
			usuarios.nombre AS nombre,
			AVG(calificaciones.puntuacion) AS promedio,
			COUNT(calificaciones.id) AS total`).
		Joins("JOIN usuarios ON usuarios.id = calificaciones.proveedor_id").
		Group("calificaciones.proveedor_id, usuarios.nombre").
		Having("COUNT(calificaciones.id) >= ?", minResenas).
		Order("promedio DESC, total DESC").
		Limit(n).
		Scan(&top).Error
	if err != nil {
		return nil, err
	}

	if s.RDB != nil {
		if raw, err := json.Marshal(top); err == nil {
			if err := s.RDB.Set(ctx, key, raw, s.TTL).Err(); err != nil {
				log.Printf("ranking: cache set failed: %v", err)
			}
		}
	}

	return top, nil
}

// Invalidate drops the cached rankings after a new calificacion.
func (s *Service) Invalidate(ctx context.Context) {
	if s.RDB == nil {
		return
	}
	iter := s.RDB.Scan(ctx, 0, "ranking:proveedores:*", 0).Iterator()
	for iter.Next(ctx) {
		_ = s.RDB.Del(ctx, iter.Val()).Err()
	}
}
