// Package store persists device registrations in an embedded bbolt
// database so the registry survives restarts.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/openskies/alpaca-console/internal/models"
)

const devicesBucket = "devices"

// DeviceRecord is the persisted subset of a device registration. Runtime
// state (connection flags, telemetry) is deliberately not stored.
type DeviceRecord struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Type         models.DeviceType `json:"type"`
	DeviceNumber int               `json:"device_number"`
	APIBaseURL   string            `json:"api_base_url,omitempty"`
	PollInterval time.Duration     `json:"poll_interval,omitempty"`
}

// RecordFromDevice extracts the persisted fields from a device.
func RecordFromDevice(d *models.Device) DeviceRecord {
	return DeviceRecord{
		ID:           d.ID,
		Name:         d.Name,
		Type:         d.Type,
		DeviceNumber: d.DeviceNumber,
		APIBaseURL:   d.APIBaseURL,
		PollInterval: d.PollInterval,
	}
}

// Device rebuilds a registry device from the record.
func (r DeviceRecord) Device() *models.Device {
	return &models.Device{
		ID:           r.ID,
		Name:         r.Name,
		Type:         r.Type,
		DeviceNumber: r.DeviceNumber,
		APIBaseURL:   r.APIBaseURL,
		PollInterval: r.PollInterval,
		Properties:   make(map[string]models.PropertyValue),
	}
}

// Store wraps a bbolt database holding device registrations.
type Store struct {
	db     *bolt.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the database at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open device store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(devicesBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create devices bucket: %w", err)
	}

	return &Store{db: db, logger: logger.With(zap.String("component", "device_store"))}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveDevice persists a device registration, overwriting any previous
// record with the same id.
func (s *Store) SaveDevice(record DeviceRecord) error {
	if record.ID == "" {
		return fmt.Errorf("device id cannot be empty")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(devicesBucket))
		value, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return b.Put([]byte(record.ID), value)
	})
}

// DeleteDevice removes a device registration.
func (s *Store) DeleteDevice(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(devicesBucket)).Delete([]byte(id))
	})
}

// ListDevices returns every persisted registration.
func (s *Store) ListDevices() ([]DeviceRecord, error) {
	var records []DeviceRecord

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(devicesBucket)).ForEach(func(k, v []byte) error {
			var r DeviceRecord
			if err := json.Unmarshal(v, &r); err != nil {
				s.logger.Warn("Skipping corrupt device record", zap.String("id", string(k)), zap.Error(err))
				return nil
			}
			records = append(records, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
