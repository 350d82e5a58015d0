package service

import "time"

// Clock абстрагирует доступ к текущему времени, чтобы окно голосования
// и разрешение победителя были детерминированно тестируемы без сна.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// NewClock возвращает часы на основе wall-clock времени (UTC).
func NewClock() Clock { return realClock{} }
