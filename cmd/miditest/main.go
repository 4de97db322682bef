package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go-pianoroll/midi"
	"go-pianoroll/render"
	"go-pianoroll/session"
	"go-pianoroll/transport"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = listPorts()
	case "poll":
		err = pollDevices(arg(2))
	case "dump":
		err = dump(arg(2))
	case "roundtrip":
		err = roundtrip(arg(2), arg(3))
	case "play":
		err = play(arg(2), arg(3))
	default:
		usage()
	}
	midi.CloseDriver()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func arg(i int) string {
	if i < len(os.Args) {
		return os.Args[i]
	}
	return ""
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                  - List all MIDI ports")
	fmt.Println("  poll [match]          - Watch inputs come and go, print their notes")
	fmt.Println("  dump <file.mid>       - Print the tracks and notes of a file")
	fmt.Println("  roundtrip <in> <out>  - Import and export a file through the editor model")
	fmt.Println("  play <file.mid> [out] - Play a file on an output port without a UI")
}

func listPorts() error {
	fmt.Println("=== MIDI Ports ===")
	fmt.Printf("(waiting up to %s...)\n", midi.PortScanTimeout)

	ports, err := midi.ListPorts()
	if err != nil {
		fmt.Println("\nTIMEOUT! The MIDI service is hung.")
		fmt.Println("Fix on macOS: sudo killall coreaudiod midiserver")
		return err
	}
	fmt.Println("Inputs:")
	for i, name := range ports.InNames() {
		fmt.Printf("  %d: %s\n", i, name)
	}
	fmt.Println("Outputs:")
	for i, name := range ports.OutNames() {
		fmt.Printf("  %d: %s\n", i, name)
	}
	return nil
}

func pollDevices(match string) error {
	fmt.Println("Polling for MIDI inputs every second. Ctrl+C to exit.")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	mgr := midi.NewInputManager(match)
	go mgr.Run(ctx)

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-mgr.Devices():
			if !ok {
				return nil
			}
			fmt.Printf("[%s] %s %s\n", time.Now().Format("15:04:05"), ev.Name, ev.Type)
		case <-ticker.C:
			for _, ev := range mgr.Drain() {
				fmt.Printf("  %v\n", ev)
			}
		}
	}
}

func openFile(path string) (*midi.File, error) {
	if path == "" {
		return nil, fmt.Errorf("missing file argument")
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return midi.Decode(fh)
}

func dump(path string) error {
	f, err := openFile(path)
	if err != nil {
		return err
	}
	fmt.Printf("ppq %d  bpm %.2f  %d tracks  %d notes\n", f.PPQ, f.BPM, len(f.Tracks), f.NoteCount())
	for i, t := range f.Tracks {
		kind := "melodic"
		if t.IsDrum() {
			kind = "drums"
		}
		fmt.Printf("\n#%d %q ch %d %s, %d notes\n", i, t.Name, t.Channel+1, kind, len(t.Notes))
		for _, n := range t.Notes {
			fmt.Printf("  %6d +%-5d %-4s vel %3d", n.StartTick, n.DurationTicks, render.NoteName(int(n.Pitch)), n.Velocity)
			if n.Modulation != nil {
				fmt.Printf(" mod %d", *n.Modulation)
			}
			if n.Expression != nil {
				fmt.Printf(" expr %d", *n.Expression)
			}
			fmt.Println()
		}
	}
	return nil
}

func roundtrip(in, out string) error {
	if in == "" || out == "" {
		return fmt.Errorf("usage: roundtrip <in> <out>")
	}
	doc, err := session.DecodeFile(in)
	if err != nil {
		return err
	}
	s := session.New(session.Options{})
	if err := s.Load(doc); err != nil {
		return err
	}
	fh, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := s.Export(fh); err != nil {
		fh.Close()
		return err
	}
	if err := fh.Close(); err != nil {
		return err
	}

	back, err := session.DecodeFile(out)
	if err != nil {
		return fmt.Errorf("re-read %s: %w", out, err)
	}
	fmt.Printf("%s: %d notes, %d ticks -> %s: %d notes, %d ticks\n",
		in, doc.Notes.Len(), doc.TotalTicks(), out, back.Notes.Len(), back.TotalTicks())
	if back.Notes.Len() != doc.Notes.Len() {
		return fmt.Errorf("note count changed")
	}
	return nil
}

// play runs the session frame loop on a ticker, the same way the hosts step
// it from their frame callbacks
func play(path, port string) error {
	doc, err := session.DecodeFile(path)
	if err != nil {
		return err
	}
	clock := transport.NewClock()
	out, err := midi.OpenPortOutput(port, clock.CurrentSeconds)
	if err != nil {
		return err
	}
	defer out.Close()

	s := session.New(session.Options{Transport: clock, Sound: out, Lookahead: int64(doc.PPQ / 4)})
	if err := s.Load(doc); err != nil {
		return err
	}
	s.Resize(800, 600, 1)
	if err := s.Play(); err != nil {
		return err
	}
	fmt.Printf("Playing %s (%.1fs). Ctrl+C to stop.\n", path, s.DurationSeconds())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()
	for s.State() == session.StatePlaying {
		select {
		case <-ctx.Done():
			s.Stop()
			return nil
		case <-ticker.C:
			s.Loop().Step()
		}
	}
	s.Close()
	fmt.Println("Done!")
	return nil
}
