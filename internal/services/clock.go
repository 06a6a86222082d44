package services

import "time"

// Clock отдает текущее время; подменяется в тестах для детерминизма.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// NewClock возвращает часы реального времени.
func NewClock() Clock { return realClock{} }
