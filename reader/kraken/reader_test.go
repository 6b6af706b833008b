package kraken

import (
	"testing"

	"tradient/internal/symbols"
	"tradient/models"
)

func TestDecodeTickerFrame(t *testing.T) {
	msg := []byte(`[42,{"a":["50010.5","1","1.000"],"b":["50009.1","2","2.000"],"c":["50010.0","0.01"],"v":["120.5","340.2"]},"ticker","XBT/USDT"]`)
	f, err := decodeFrame(msg)
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if f == nil || f.Ticker == nil {
		t.Fatalf("frame = %#v, want ticker", f)
	}
	if f.Pair != "XBT/USDT" {
		t.Fatalf("pair = %s", f.Pair)
	}

	sym := symbols.NewMapper("kraken").ToCanonical(f.Pair)
	if sym != "BTC/USDT" {
		t.Fatalf("canonical = %s, want BTC/USDT", sym)
	}

	tick := f.Ticker.toTicker(sym)
	if tick == nil {
		t.Fatalf("toTicker returned nil")
	}
	if tick.BidPrice != 50009.1 || tick.AskPrice != 50010.5 {
		t.Fatalf("quotes = %v/%v", tick.BidPrice, tick.AskPrice)
	}
	if tick.Volume24h <= 0 {
		t.Fatalf("volume = %v", tick.Volume24h)
	}
}

func TestDecodeBookSnapshotThenUpdate(t *testing.T) {
	r := NewReader(nil, nil)
	sym := models.Symbol("BTC/USDT")

	snap := []byte(`[43,{"as":[["50010.5","1.0","1700000000.0"],["50011.0","2.0","1700000000.0"]],"bs":[["50009.0","1.5","1700000000.0"]]},"book-25","XBT/USDT"]`)
	f, err := decodeFrame(snap)
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	b := r.applyBook(sym, f.Book)
	if b == nil {
		t.Fatalf("snapshot produced no book")
	}
	if len(b.Asks) != 2 || len(b.Bids) != 1 {
		t.Fatalf("book sides = %d/%d", len(b.Bids), len(b.Asks))
	}

	// ask and bid updates arrive as two payload dictionaries
	upd := []byte(`[43,{"a":[["50010.5","0","1700000001.0"]]},{"b":[["50008.0","3.0","1700000001.0"]]},"book-25","XBT/USDT"]`)
	f, err = decodeFrame(upd)
	if err != nil {
		t.Fatalf("decode update: %v", err)
	}
	b = r.applyBook(sym, f.Book)
	if b == nil {
		t.Fatalf("update produced no book")
	}
	if len(b.Asks) != 1 || b.Asks[0].Price != 50011.0 {
		t.Fatalf("asks after removal = %v", b.Asks)
	}
	if len(b.Bids) != 2 || b.Bids[0].Price != 50009.0 {
		t.Fatalf("bids after insert = %v", b.Bids)
	}
}

func TestUpdateBeforeSnapshotDropped(t *testing.T) {
	r := NewReader(nil, nil)
	upd := []byte(`[43,{"a":[["50010.5","1.0","1700000001.0"]]},"book-25","ETH/USDT"]`)
	f, err := decodeFrame(upd)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := r.applyBook("ETH/USDT", f.Book); b != nil {
		t.Fatalf("update without snapshot produced a book")
	}
}

func TestEventFramesIgnored(t *testing.T) {
	for _, raw := range []string{
		`{"event":"heartbeat"}`,
		`{"event":"systemStatus","status":"online","version":"1.9.0"}`,
		`{"event":"subscriptionStatus","status":"subscribed","pair":"XBT/USDT"}`,
	} {
		f, err := decodeFrame([]byte(raw))
		if err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if f != nil {
			t.Fatalf("%s: frame = %#v, want nil", raw, f)
		}
	}
}

func TestDecodeMalformedFrames(t *testing.T) {
	for _, raw := range []string{"", "[1,2]", "not json"} {
		if _, err := decodeFrame([]byte(raw)); err == nil {
			t.Fatalf("%q: expected error", raw)
		}
	}
}
