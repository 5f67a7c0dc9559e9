package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// операция сохранена локально и будет отправлена при появлении связи
	ErrDeferred = errors.New("operation deferred until connectivity is restored")
	// вызов не выполнялся, оракул сообщает об отсутствии связи
	ErrOffline = errors.New("device is offline")
	// нет ни живых данных, ни локального снимка
	ErrNoCachedData = errors.New("no live data and no cached snapshot")
	// в очереди есть более ранние отложенные вызовы
	ErrQueueBacklog = errors.New("earlier deferred operations are still pending")
)

// ConnectivityError означает сбой транспорта, таймаут или временную ошибку сервера
type ConnectivityError struct {
	Op     string
	Status int
	Err    error
}

func (e *ConnectivityError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: сервер временно недоступен (статус %d)", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: нет связи с сервером: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// RejectionError возвращается, когда сервер отклонил запрос и повтор не поможет
type RejectionError struct {
	Op      string
	Status  int
	Message string
}

func (e *RejectionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: сервер отклонил запрос (статус %d): %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: сервер отклонил запрос (статус %d)", e.Op, e.Status)
}

// ShapeError означает, что ответ не соответствует ожидаемой структуре
type ShapeError struct {
	Op     string
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: неожиданный формат ответа: %s", e.Op, e.Reason)
}

// DeferredError возвращается очередью вместе с идентификатором отложенного вызова
type DeferredError struct {
	MutationID string
	Cause      error
}

func (e *DeferredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("операция %s отложена: %v", e.MutationID, e.Cause)
	}
	return fmt.Sprintf("операция %s отложена", e.MutationID)
}

func (e *DeferredError) Is(target error) bool {
	return target == ErrDeferred
}

func (e *DeferredError) Unwrap() error {
	return e.Cause
}

// IsRetryable сообщает, имеет ли смысл повторить вызов позже
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var (
		connErr  *ConnectivityError
		shapeErr *ShapeError
	)
	return errors.Is(err, ErrOffline) || errors.As(err, &connErr) || errors.As(err, &shapeErr)
}

// IsRejection сообщает, что сервер окончательно отклонил запрос
func IsRejection(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej)
}

// retryableStatus: 5xx, 408 и 429 считаются проблемой связи
func retryableStatus(status int) bool {
	return status >= http.StatusInternalServerError ||
		status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests
}
