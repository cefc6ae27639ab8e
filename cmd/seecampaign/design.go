package main

import (
	"context"
	"time"

	"github.com/ahrav/see-armada/internal/infra/sim/memory"
)

const (
	fifoDepth = 4
	// clockPeriod is one cycle of the demo design in simulated time.
	clockPeriod = 10 * time.Nanosecond
)

// demoDesign is a small UART-like core used to exercise campaigns without an
// external simulator:
//
//	tb
//	├── see_count[32], see_name[512]   observability handles
//	└── u_dut (uart_core)
//	    ├── clk, rst_n
//	    ├── u_tx (uart_tx): shift[10], bit_cnt[4], busy
//	    ├── u_rx (uart_rx): sample[8], state[3]
//	    ├── fifo[0..3] (fifo_slot): data[8], valid
//	    ├── u_dbg (debug_unit): trace[64]
//	    └── crc_state[256]
type demoDesign struct {
	tb  *memory.Scope
	dut *memory.Scope

	clk, rstN     *memory.Signal
	shift, bitCnt *memory.Signal
	busy          *memory.Signal
	sample, state *memory.Signal
	data, valid   []*memory.Signal
	trace, crc    *memory.Signal
	cycles        uint64
}

func newDemoDesign() *demoDesign {
	d := &demoDesign{tb: memory.NewDesign("tb", "testbench")}
	d.tb.AddSignal("see_count", 32)
	d.tb.AddSignal("see_name", 8*64)

	d.dut = d.tb.AddScope("u_dut", "uart_core")
	d.clk = d.dut.AddSignal("clk", 1)
	d.rstN = d.dut.AddSignal("rst_n", 1)

	tx := d.dut.AddScope("u_tx", "uart_tx")
	d.shift = tx.AddSignal("shift", 10)
	d.bitCnt = tx.AddSignal("bit_cnt", 4)
	d.busy = tx.AddSignal("busy", 1)

	rx := d.dut.AddScope("u_rx", "uart_rx")
	d.sample = rx.AddSignal("sample", 8)
	d.state = rx.AddSignal("state", 3)

	fifo := d.dut.AddArray("fifo")
	for range fifoDepth {
		slot := fifo.AddScope("fifo_slot")
		d.data = append(d.data, slot.AddSignal("data", 8))
		d.valid = append(d.valid, slot.AddSignal("valid", 1))
	}

	d.trace = d.dut.AddScope("u_dbg", "debug_unit").AddSignal("trace", 64)
	d.crc = d.dut.AddSignal("crc_state", 256)

	d.reset()
	return d
}

func (d *demoDesign) reset() {
	d.clk.SetUint64(0)
	d.rstN.SetUint64(1)
	d.shift.SetUint64(0b1_0101_0101_0)
	d.bitCnt.SetUint64(0)
	d.busy.SetUint64(1)
	d.sample.SetUint64(0)
	d.state.SetUint64(0)
	for i := range d.data {
		d.data[i].SetUint64(uint64(i))
		d.valid[i].SetUint64(0)
	}
	d.trace.SetUint64(0)
	d.crc.SetUint64(0xffff)
	// rx sample register powers up undefined until the first receive.
	d.sample.SetUndefined()
}

// run advances the design one cycle per clockPeriod of simulated time until
// ctx is cancelled.
func (d *demoDesign) run(ctx context.Context, clk *memory.Clock) error {
	for {
		if err := clk.Sleep(ctx, clockPeriod); err != nil {
			return err
		}
		d.step()
	}
}

// step computes the next state from the current one, so injected upsets
// propagate through the logic the way they would in hardware.
func (d *demoDesign) step() {
	d.cycles++
	d.clk.SetUint64(d.cycles & 1)

	shift := d.shift.Uint64()
	d.shift.SetUint64((shift >> 1) | (shift&1)<<9)
	d.bitCnt.SetUint64((d.bitCnt.Uint64() + 1) % 10)
	d.busy.SetUint64(boolBit(d.bitCnt.Uint64() != 0))

	if d.cycles%8 == 0 {
		d.sample.SetUint64(shift & 0xff)
		d.state.SetUint64((d.state.Uint64() + 1) % 5)
		slot := (d.cycles / 8) % fifoDepth
		d.data[slot].SetUint64(shift & 0xff)
		d.valid[slot].SetUint64(1)
	}
	d.trace.SetUint64(d.cycles)
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
