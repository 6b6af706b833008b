package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type exchangeStat struct {
	messages int64
	bytes    int64
}

var (
	errorsStream    int64
	errorsScan      int64
	warnsStream     int64
	warnsScan       int64
	tickerUpdates   int64
	bookUpdates     int64
	decodeFailures  int64
	scanCycles      int64
	opportunitiesCt int64
	exchanges       sync.Map // map[string]*exchangeStat
)

func recordWarn(component string) {
	if strings.Contains(component, "scanner") {
		atomic.AddInt64(&warnsScan, 1)
	} else if strings.Contains(component, "reader") {
		atomic.AddInt64(&warnsStream, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "scanner") {
		atomic.AddInt64(&errorsScan, 1)
	} else if strings.Contains(component, "reader") {
		atomic.AddInt64(&errorsStream, 1)
	}
}

// IncrementTickerUpdate counts one decoded quote from an exchange feed.
func IncrementTickerUpdate(exchange string, size int) {
	atomic.AddInt64(&tickerUpdates, 1)
	recordExchange(exchange, size)
}

// IncrementBookUpdate counts one applied order book snapshot or delta.
func IncrementBookUpdate(exchange string, size int) {
	atomic.AddInt64(&bookUpdates, 1)
	recordExchange(exchange, size)
}

// IncrementDecodeFailure counts one skipped malformed message.
func IncrementDecodeFailure(exchange string) {
	atomic.AddInt64(&decodeFailures, 1)
}

// IncrementScanCycle counts one completed scan cycle and the
// opportunities it produced.
func IncrementScanCycle(opportunities int) {
	atomic.AddInt64(&scanCycles, 1)
	atomic.AddInt64(&opportunitiesCt, int64(opportunities))
}

func recordExchange(name string, size int) {
	v, _ := exchanges.LoadOrStore(name, &exchangeStat{})
	es := v.(*exchangeStat)
	atomic.AddInt64(&es.messages, 1)
	atomic.AddInt64(&es.bytes, int64(size))
}

// StartReport begins periodic logging of runtime and feed statistics.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func logReport(ctx context.Context, log *Log) {
	exchangeData := map[string]map[string]int64{}
	exchanges.Range(func(k, v any) bool {
		name := k.(string)
		es := v.(*exchangeStat)
		exchangeData[name] = map[string]int64{
			"messages": atomic.LoadInt64(&es.messages),
			"bytes":    atomic.LoadInt64(&es.bytes),
		}
		return true
	})

	fields := Fields{
		"errors_stream":   atomic.LoadInt64(&errorsStream),
		"errors_scan":     atomic.LoadInt64(&errorsScan),
		"warns_stream":    atomic.LoadInt64(&warnsStream),
		"warns_scan":      atomic.LoadInt64(&warnsScan),
		"ticker_updates":  atomic.LoadInt64(&tickerUpdates),
		"book_updates":    atomic.LoadInt64(&bookUpdates),
		"decode_failures": atomic.LoadInt64(&decodeFailures),
		"scan_cycles":     atomic.LoadInt64(&scanCycles),
		"opportunities":   atomic.LoadInt64(&opportunitiesCt),
		"goroutines":      runtime.NumGoroutine(),
		"exchanges":       exchangeData,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("StreamErrors"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&errorsStream)))},
		cwtypes.MetricDatum{MetricName: aws.String("ScanErrors"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&errorsScan)))},
		cwtypes.MetricDatum{MetricName: aws.String("TickerUpdates"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&tickerUpdates)))},
		cwtypes.MetricDatum{MetricName: aws.String("BookUpdates"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&bookUpdates)))},
		cwtypes.MetricDatum{MetricName: aws.String("DecodeFailures"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&decodeFailures)))},
		cwtypes.MetricDatum{MetricName: aws.String("ScanCycles"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&scanCycles)))},
		cwtypes.MetricDatum{MetricName: aws.String("Opportunities"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&opportunitiesCt)))},
	)

	for name, stats := range exchangeData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("ExchangeMessages"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Exchange"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["messages"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("ExchangeBytes"),
				Unit:       cwtypes.StandardUnitBytes,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Exchange"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["bytes"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
