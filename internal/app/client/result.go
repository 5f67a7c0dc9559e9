package client

import (
	"errors"
)

// Source показывает, откуда получен результат операции
type Source string

const (
	SourceLive     Source = "live"
	SourceDeferred Source = "deferred"
	SourceCache    Source = "cache"
)

// WriteResult описывает итог записи, выполненной через очередь
type WriteResult struct {
	Source     Source `json:"source"`
	ID         int64  `json:"id,omitempty"`
	MutationID string `json:"mutation_id,omitempty"`
}

// writeResult переводит ответ очереди в WriteResult.
// Отложенный вызов не является ошибкой для вызывающей стороны.
func writeResult(id int64, err error) (*WriteResult, error) {
	if err == nil {
		return &WriteResult{Source: SourceLive, ID: id}, nil
	}
	var deferred *DeferredError
	if errors.As(err, &deferred) {
		return &WriteResult{Source: SourceDeferred, MutationID: deferred.MutationID}, nil
	}
	return nil, err
}
