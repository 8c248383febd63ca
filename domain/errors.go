// Package domain defines the error taxonomy and the execution port shared by
// the planner, the post-processor and the executors.
package domain

import (
	"context"
	"errors"
	"fmt"
)

// DataSetFilterError indicates an operator that is not legal for a field's data type.
type DataSetFilterError struct {
	Message string
}

func (e *DataSetFilterError) Error() string { return e.Message }

// MetricRequiredError indicates a widget declared without any metric.
type MetricRequiredError struct {
	Message string
}

func (e *MetricRequiredError) Error() string { return e.Message }

// DataSetError indicates an invalid dataset composition, e.g. a choices query
// crossing dataset boundaries or a blender mapping incompatible fields.
type DataSetError struct {
	Message string
}

func (e *DataSetError) Error() string { return e.Message }

// PlanError indicates a query that cannot be planned against its dataset.
type PlanError struct {
	Message string
}

func (e *PlanError) Error() string { return e.Message }

// QueryCancelledError indicates the caller interrupted execution.
type QueryCancelledError struct {
	SQL string
	Err error
}

func (e *QueryCancelledError) Error() string {
	return fmt.Sprintf("query cancelled: %v", e.Err)
}

func (e *QueryCancelledError) Unwrap() error { return e.Err }

// ExecutionError wraps a driver failure together with the statement that caused it.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute query: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// ErrDataSetFilter creates a DataSetFilterError with a formatted message.
func ErrDataSetFilter(format string, args ...interface{}) *DataSetFilterError {
	return &DataSetFilterError{Message: fmt.Sprintf(format, args...)}
}

// ErrMetricRequired creates a MetricRequiredError with a formatted message.
func ErrMetricRequired(format string, args ...interface{}) *MetricRequiredError {
	return &MetricRequiredError{Message: fmt.Sprintf(format, args...)}
}

// ErrDataSet creates a DataSetError with a formatted message.
func ErrDataSet(format string, args ...interface{}) *DataSetError {
	return &DataSetError{Message: fmt.Sprintf(format, args...)}
}

// ErrPlan creates a PlanError with a formatted message.
func ErrPlan(format string, args ...interface{}) *PlanError {
	return &PlanError{Message: fmt.Sprintf(format, args...)}
}

// WrapExecution classifies a driver error. Context cancellation and deadline
// expiry become QueryCancelledError; anything else becomes ExecutionError.
func WrapExecution(sqlQuery string, err error) error {
	if err == nil {
		return nil
	}
	var cancelled *QueryCancelledError
	if errors.As(err, &cancelled) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &QueryCancelledError{SQL: sqlQuery, Err: err}
	}
	return &ExecutionError{SQL: sqlQuery, Err: err}
}

// IsSpecError reports whether err is a programmer error raised while building a query.
func IsSpecError(err error) bool {
	var filterErr *DataSetFilterError
	var metricErr *MetricRequiredError
	var dataSetErr *DataSetError
	return errors.As(err, &filterErr) || errors.As(err, &metricErr) || errors.As(err, &dataSetErr)
}
