package pipeline

import (
	"context"
	"fmt"
	"sync"

	"rate-analysis-service/models"

	"go.uber.org/zap"
)

// TaskType identifies the work a pipeline request carries.
type TaskType string

const (
	TaskMapRows         TaskType = "MAP_ROWS"
	TaskValidateRecords TaskType = "VALIDATE_RECORDS"
)

// ResultType identifies the terminal message produced for a request.
type ResultType string

const (
	ResultBatchComplete      ResultType = "BATCH_COMPLETE"
	ResultValidationComplete ResultType = "VALIDATION_COMPLETE"
	ResultError              ResultType = "ERROR"
)

// Request is one unit of pipeline work.
type Request struct {
	Task              TaskType
	Rows              []models.Row
	Mappings          models.FieldMapping
	Records           []models.ShipmentRecord
	StartIndex        int
	OriginZipOverride string

	reply chan Result
}

// Result is the single terminal message for a Request. Records is set for
// BATCH_COMPLETE, Validations for VALIDATION_COMPLETE, Reason for ERROR.
type Result struct {
	Type        ResultType
	StartIndex  int
	Records     []models.ShipmentRecord
	Validations map[int]models.ValidationResult
	Reason      string
}

// Worker runs mapping and validation requests on a dedicated goroutine so
// large uploads never block the serving path.
type Worker struct {
	requests chan Request
	results  chan Result
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewWorker creates a pipeline worker with the given queue depth.
func NewWorker(buffer int, logger *zap.Logger) *Worker {
	if buffer <= 0 {
		buffer = 16
	}
	return &Worker{
		requests: make(chan Request, buffer),
		results:  make(chan Result, buffer),
		logger:   logger,
	}
}

// Start launches the worker loop. It runs until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case req := <-w.requests:
				res := w.handle(ctx, req)
				if req.reply != nil {
					req.reply <- res
					continue
				}
				select {
				case w.results <- res:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
}

// Submit enqueues a request whose terminal message is delivered on the
// Results stream. It blocks while the queue is full.
func (w *Worker) Submit(req Request) {
	w.requests <- req
}

// Do submits the request and waits for its terminal message.
func (w *Worker) Do(ctx context.Context, req Request) Result {
	reply := make(chan Result, 1)
	req.reply = reply

	select {
	case w.requests <- req:
	case <-ctx.Done():
		return Result{Type: ResultError, StartIndex: req.StartIndex, Reason: ctx.Err().Error()}
	}

	select {
	case res := <-reply:
		return res
	case <-ctx.Done():
		return Result{Type: ResultError, StartIndex: req.StartIndex, Reason: ctx.Err().Error()}
	}
}

// Results returns the terminal message stream for submitted requests.
func (w *Worker) Results() <-chan Result {
	return w.results
}

// Stop waits for the worker loop to exit. Cancel the context passed to
// Start before calling it.
func (w *Worker) Stop() {
	w.wg.Wait()
}

func (w *Worker) handle(ctx context.Context, req Request) Result {
	switch req.Task {
	case TaskMapRows:
		records, err := MapRows(ctx, req.Rows, req.Mappings, req.StartIndex, req.OriginZipOverride)
		if err != nil {
			return Result{Type: ResultError, StartIndex: req.StartIndex, Reason: err.Error()}
		}
		return Result{Type: ResultBatchComplete, StartIndex: req.StartIndex, Records: records}

	case TaskValidateRecords:
		validations, err := ValidateRecords(ctx, req.Records, req.StartIndex)
		if err != nil {
			return Result{Type: ResultError, StartIndex: req.StartIndex, Reason: err.Error()}
		}
		return Result{Type: ResultValidationComplete, StartIndex: req.StartIndex, Validations: validations}

	default:
		w.logger.Error("Unknown pipeline task", zap.String("task", string(req.Task)))
		return Result{Type: ResultError, StartIndex: req.StartIndex, Reason: fmt.Sprintf("unknown task type: %s", req.Task)}
	}
}
