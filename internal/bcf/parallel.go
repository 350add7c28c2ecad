package bcf

import (
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// WorkItem holds a decoded record ready for per-record work.
type WorkItem struct {
	Seq int
	Rec *Record
}

// WorkResult holds the work output for a single record.
type WorkResult struct {
	Seq int
	Rec *Record
	Out []byte
	Err error
}

// ParallelMap runs fn over work items using a pool of workers. Records in
// the items channel must each own their buffer (Reader.Next, not a reused
// Read record). Results are sent to the returned channel in arrival order
// (not sequence order); use OrderedCollect to consume them in
// sequence-number order. If workers is 0, runtime.NumCPU() is used.
func ParallelMap(items <-chan WorkItem, workers int, fn func(*Record) ([]byte, error)) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				out, err := fn(item.Rec)
				results <- WorkResult{
					Seq: item.Seq,
					Rec: item.Rec,
					Out: out,
					Err: err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// RecordWriter defines the interface for consuming per-record output.
type RecordWriter interface {
	WriteHeader() error
	Write(rec *Record, out []byte) error
	Flush() error
}

// DecodeAll reads every record, runs fn over a worker pool and hands the
// outputs to writer in input order. A stream or shared-block error stops
// the run; a per-record fn error is logged and the record skipped, since
// record recovery policy belongs to the caller, not the decoder.
func (r *Reader) DecodeAll(writer RecordWriter, workers int, fn func(*Record) ([]byte, error)) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	items := make(chan WorkItem, 2*workers)
	var readErr error
	recordCount := 0

	go func() {
		defer close(items)
		seq := 0
		for {
			rec, err := r.Next()
			if err != nil {
				readErr = fmt.Errorf("read record: %w", err)
				return
			}
			if rec == nil {
				return
			}
			recordCount++
			items <- WorkItem{Seq: seq, Rec: rec}
			seq++
		}
	}()

	results := ParallelMap(items, workers, fn)

	if err := OrderedCollect(results, func(res WorkResult) error {
		if res.Err != nil {
			r.logger.Warn("failed to decode record",
				zap.String("chrom", res.Rec.Chrom()),
				zap.Int64("pos", res.Rec.Pos()),
				zap.Error(res.Err))
			return nil
		}
		if err := writer.Write(res.Rec, res.Out); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		return nil
	}); err != nil {
		return err
	}

	if readErr != nil {
		return readErr
	}

	if recordCount == 0 {
		r.logger.Info("0 records processed")
	}

	return writer.Flush()
}
