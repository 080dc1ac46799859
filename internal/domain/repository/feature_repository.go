package repository

import (
	"context"

	"github.com/paulmach/orb/geojson"
)

// FeatureStore - файловое хранилище коллекций и топологий
type FeatureStore interface {
	// Exists проверяет, материализован ли файл полностью
	Exists(path string) bool

	// Size возвращает размер файла в байтах
	Size(path string) (int64, error)

	// ReadCollection читает FeatureCollection
	ReadCollection(ctx context.Context, path string) (*geojson.FeatureCollection, error)

	// ReadRaw читает файл как есть
	ReadRaw(ctx context.Context, path string) ([]byte, error)

	// WriteJSON атомарно записывает значение, создавая родительские каталоги
	WriteJSON(ctx context.Context, path string, v interface{}) error
}
