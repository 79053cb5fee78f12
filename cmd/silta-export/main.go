package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"gopkg.in/yaml.v3"

	"github.com/vsariola/silta"
	"github.com/vsariola/silta/csd"
	"github.com/vsariola/silta/enginetest"
	"github.com/vsariola/silta/host"
	"github.com/vsariola/silta/version"
)

func main() {
	blocks := flag.Int("n", 100, "Number of host blocks to render.")
	sampleRate := flag.Int("rate", 44100, "Sample rate in Hz.")
	hostBlockSize := flag.Int("b", 512, "Host block size in frames.")
	controlBlockSize := flag.Int("k", 64, "Engine control block size in frames.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, everything is placed in the same directory where the descriptor file is.")
	dumpYaml := flag.Bool("y", false, "Write the parsed controllers as .yml instead of rendering audio.")
	help := flag.Bool("h", false, "Show help.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	retval := 0
	for _, filename := range flag.Args() {
		if err := process(filename, *blocks, *sampleRate, *hostBlockSize, *controlBlockSize, *directory, *dumpYaml); err != nil {
			fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", filename, err)
			retval = 1
		}
	}
	os.Exit(retval)
}

func process(filename string, blocks, sampleRate, hostBlockSize, controlBlockSize int, directory string, dumpYaml bool) error {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("could not read file: %v", err)
	}
	descriptor := string(contents)
	controllers, err := csd.ParseControllers(descriptor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "descriptor has malformed lines, continuing with the rest: %v\n", err)
	}
	if dumpYaml {
		out, err := yaml.Marshal(controllers)
		if err != nil {
			return fmt.Errorf("could not marshal controllers: %v", err)
		}
		return writeFile(filename, directory, ".yml", out)
	}
	engine := enginetest.NewTone(controlBlockSize, sampleRate)
	silta.ApplyControllers(engine, controllers)
	broker := host.NewBroker()
	session, err := host.NewSession(broker, hostBlockSize)
	if err != nil {
		return fmt.Errorf("could not create session: %v", err)
	}
	names := csd.ParseAudioChannelNames(descriptor)
	for _, name := range names {
		if err := session.RegisterChannel(name); err != nil {
			return fmt.Errorf("could not register channel %v: %v", name, err)
		}
	}
	if err := session.SetEngine(engine); err != nil {
		return fmt.Errorf("could not set engine: %v", err)
	}
	captured := make(map[string][]float32, len(names))
	buffer := make([]float32, hostBlockSize*engine.ChannelCount())
	for block := 0; block < blocks; block++ {
		if err := session.ProcessBlock(buffer, hostBlockSize, engine.ChannelCount()); err != nil {
			return fmt.Errorf("could not render block %v: %v", block, err)
		}
		for _, name := range names {
			accumulated, ok := session.Accumulated(name)
			if !ok {
				continue
			}
			captured[name] = append(captured[name], accumulated...)
		}
		// drop the published block so the meter queue never fills
		select {
		case msg := <-broker.ToMeter:
			broker.PutAudioBuffer(msg.Audio)
		default:
		}
	}
	scale := engine.ReferenceFullScale()
	for _, name := range names {
		if err := writeWav(filename, directory, name, captured[name], scale, sampleRate); err != nil {
			return fmt.Errorf("could not write channel %v: %v", name, err)
		}
	}
	return nil
}

func writeWav(filename, directory, channel string, samples []float32, scale float32, sampleRate int) error {
	path, err := outputPath(filename, directory, "-"+channel+".wav")
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create file %v: %v", path, err)
	}
	defer f.Close()
	encoder := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	data := make([]int, len(samples))
	for i, sample := range samples {
		v := sample / scale
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		data[i] = int(v * 32767)
	}
	buffer := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := encoder.Write(buffer); err != nil {
		return fmt.Errorf("could not write wav data: %v", err)
	}
	return encoder.Close()
}

func writeFile(filename, directory, extension string, contents []byte) error {
	path, err := outputPath(filename, directory, extension)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, contents, 0644); err != nil {
		return fmt.Errorf("could not write file %v: %v", path, err)
	}
	return nil
}

func outputPath(filename, directory, suffix string) (string, error) {
	dir, name := filepath.Split(filename)
	if directory != "" {
		dir = directory
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return "", fmt.Errorf("could not create output directory %v: %v", dir, err)
		}
	}
	name = strings.TrimSuffix(name, filepath.Ext(name)) + suffix
	return filepath.Join(dir, name), nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Silta command line utility for rendering .csd descriptor channels to .wav files.\nUsage: %s [flags] [descriptor.csd ...]\n", os.Args[0])
	flag.PrintDefaults()
}
