package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vsariola/silta"
	"github.com/vsariola/silta/csd"
	"github.com/vsariola/silta/enginetest"
	"github.com/vsariola/silta/host"
	"github.com/vsariola/silta/oto"
	"github.com/vsariola/silta/version"
)

// demoDescriptor is used when no descriptor file is given, so the command is
// runnable out of the box.
const demoDescriptor = `<Cabbage>
form caption("silta demo") size(400, 300)
hslider channel("freq"), range(220, 55, 880), text("Frequency")
hslider channel("gain"), range(0.25, 0, 1), text("Gain")
</Cabbage>
<CsInstruments>
instr 1
  aSig oscili chnget:k("gain"), chnget:k("freq")
  chnset aSig, "outL"
  chnset aSig, "outR"
endin
</CsInstruments>`

func main() {
	duration := flag.Float64("d", 2, "Playback duration in seconds.")
	sampleRate := flag.Int("rate", 44100, "Sample rate in Hz.")
	hostBlockSize := flag.Int("b", 512, "Host block size in frames.")
	controlBlockSize := flag.Int("k", 64, "Engine control block size in frames.")
	meter := flag.Bool("m", false, "Print peak/RMS levels while playing.")
	help := flag.Bool("h", false, "Show help.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if *help || flag.NArg() > 1 {
		flag.Usage()
		os.Exit(0)
	}
	descriptor := demoDescriptor
	if flag.NArg() == 1 {
		contents, err := os.ReadFile(flag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not read file %v: %v\n", flag.Arg(0), err)
			os.Exit(1)
		}
		descriptor = string(contents)
	}
	controllers, err := csd.ParseControllers(descriptor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "descriptor has malformed lines, continuing with the rest: %v\n", err)
	}
	engine := enginetest.NewTone(*controlBlockSize, *sampleRate)
	silta.ApplyControllers(engine, controllers)
	broker := host.NewBroker()
	session, err := host.NewSession(broker, *hostBlockSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not create session: %v\n", err)
		os.Exit(1)
	}
	for _, name := range csd.ParseAudioChannelNames(descriptor) {
		if err := session.RegisterChannel(name); err != nil {
			fmt.Fprintf(os.Stderr, "could not register channel %v: %v\n", name, err)
		}
	}
	if err := session.SetEngine(engine); err != nil {
		fmt.Fprintf(os.Stderr, "could not set engine: %v\n", err)
		os.Exit(1)
	}
	go host.NewMessagePoller(broker, engine).Run()
	go host.NewMeter(broker).Run()
	go func() {
		for msg := range broker.ToHost {
			switch {
			case msg.HasMeterResult:
				if *meter && len(msg.MeterResult.Peak) > 0 {
					fmt.Fprintf(os.Stderr, "peak %6.1f dB  rms %6.1f dB\r", msg.MeterResult.Peak[0], msg.MeterResult.RMS[0])
				}
			default:
				if alert, ok := msg.Data.(host.Alert); ok {
					fmt.Fprintf(os.Stderr, "%v: %v\n", alert.Name, alert.Message)
				}
			}
		}
	}()
	audioContext, err := oto.NewContext(*sampleRate, engine.ChannelCount())
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not acquire oto AudioContext: %v\n", err)
		os.Exit(1)
	}
	defer audioContext.Close()
	sink := audioContext.Output()
	if err := sink.Play(host.NewStreamer(session, engine.ChannelCount())); err != nil {
		fmt.Fprintf(os.Stderr, "could not start playback: %v\n", err)
		os.Exit(1)
	}
	time.Sleep(time.Duration(*duration * float64(time.Second)))
	if err := sink.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "could not stop playback: %v\n", err)
	}
	broker.ClosePoller <- struct{}{}
	broker.CloseMeter <- struct{}{}
	<-broker.FinishedPoller
	<-broker.FinishedMeter
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Silta command line utility for playing a .csd descriptor through the demo engine.\nUsage: %s [flags] [descriptor.csd]\n", os.Args[0])
	flag.PrintDefaults()
}
