package tracker

import (
	"errors"
	"fmt"
)

// ErrCorrupt хранилище повреждено и не может быть прочитано
var ErrCorrupt = errors.New("state store is corrupt")

// DeliveryError сообщение не удалось отправить
type DeliveryError struct {
	Recipient int64
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %d: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// PersistenceError ошибка чтения или записи состояния
type PersistenceError struct {
	Op  string // "load" или "save"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ScanError ошибка перечисления источников
type ScanError struct {
	Stage string
	Err   error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Stage, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }
