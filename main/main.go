package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/phil-mansfield/bouncing"
	"github.com/phil-mansfield/bouncing/io"
	"github.com/phil-mansfield/bouncing/plot"
)

// FileGroup holds the resources that need to be released before exiting.
type FileGroup struct {
	log  *zap.SugaredLogger
	prof *os.File
}

func (fg *FileGroup) Close() {
	if fg.prof != nil {
		pprof.StopCPUProfile()
		if err := fg.prof.Close(); err != nil {
			log.Fatal(err.Error())
		}
	}
	if fg.log != nil {
		fg.log.Sync()
	}
}

// intList is a flag.Value holding a comma separated list of integers.
type intList []int

func (l *intList) String() string {
	strs := make([]string, len(*l))
	for i, n := range *l {
		strs[i] = strconv.Itoa(n)
	}
	return strings.Join(strs, ",")
}

func (l *intList) Set(s string) error {
	*l = (*l)[:0]
	for _, tok := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil {
			return fmt.Errorf("'%s' is not a list of integers", s)
		}
		*l = append(*l, n)
	}
	return nil
}

// fieldFlags are the command line flags which map directly onto Config
// fields.
type fieldFlags struct {
	sequences, sequenceLen           int
	balls                            intList
	occlusion                        bool
	screenHeight, screenWidth        int
	meanVel                          float64
	dof                              int
	channels, representation, output string
	saveMetadata                     bool
	seed                             int64
}

func (ff *fieldFlags) register(fs *flag.FlagSet, def *io.Config) {
	fs.IntVar(&ff.sequences, "sequences", def.Sequences, "Number of training sequences.")
	fs.IntVar(&ff.sequenceLen, "sequence_len", def.SequenceLen, "Number of frames in each sequence.")
	ff.balls = append(intList{}, def.Balls...)
	fs.Var(&ff.balls, "balls", "Comma separated set of ball counts, e.g. 3,6.")
	fs.BoolVar(&ff.occlusion, "occlusion", def.Occlusion, "Put an occlusion in the center of the arena.")
	fs.IntVar(&ff.screenHeight, "screen_height", def.ScreenHeight, "Arena height in pixels.")
	fs.IntVar(&ff.screenWidth, "screen_width", def.ScreenWidth, "Arena width in pixels.")
	fs.Float64Var(&ff.meanVel, "mean_vel", def.MeanVel, "Mean ball speed in pixels per second.")
	fs.IntVar(&ff.dof, "dof", def.DOF, "Degrees of freedom of ball motion, 1 or 2.")
	fs.StringVar(&ff.channels, "channels", def.Channels, "Channel order, First or Last.")
	fs.StringVar(&ff.representation, "representation", def.Representation,
		"Frame representation, Raster, Centroid or Features.")
	fs.StringVar(&ff.output, "data_dir", def.Output, "Output directory.")
	fs.BoolVar(&ff.saveMetadata, "save_metadata", def.SaveMetadata, "Write ball trajectories.")
	fs.Int64Var(&ff.seed, "seed", def.Seed, "Master random seed.")
}

// apply copies every flag which was set on the command line into con.
func (ff *fieldFlags) apply(fs *flag.FlagSet, con *io.Config) (set bool) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "sequences":
			con.Sequences = ff.sequences
		case "sequence_len":
			con.SequenceLen = ff.sequenceLen
		case "balls":
			con.Balls = append([]int{}, ff.balls...)
		case "occlusion":
			con.Occlusion = ff.occlusion
		case "screen_height":
			con.ScreenHeight = ff.screenHeight
			con.OcclusionWidth, con.OcclusionHeight = 0, 0
		case "screen_width":
			con.ScreenWidth = ff.screenWidth
			con.OcclusionWidth, con.OcclusionHeight = 0, 0
		case "mean_vel":
			con.MeanVel = ff.meanVel
		case "dof":
			con.DOF = ff.dof
		case "channels":
			con.Channels = ff.channels
		case "representation":
			con.Representation = ff.representation
		case "data_dir":
			con.Output = ff.output
		case "save_metadata":
			con.SaveMetadata = ff.saveMetadata
		case "seed":
			con.Seed = ff.seed
		default:
			return
		}
		set = true
	})
	con.FillDefaults()
	return set
}

func main() {
	var (
		generate, exampleConfig, check, plotDir string
		threads, sequence                       int
		plotFile                                string
		ff                                      fieldFlags
	)
	vars := map[string]*string{
		"Generate":      &generate,
		"ExampleConfig": &exampleConfig,
		"Check":         &check,
		"Plot":          &plotDir,
	}

	fs := flag.CommandLine
	fs.StringVar(&generate, "Generate", "",
		"Configuration file for [Generate] mode. May be .txt (gcfg) or .yaml.")
	fs.StringVar(&exampleConfig, "ExampleConfig", "",
		"Prints an example configuration file of the specified type to "+
			"stdout. The only accepted argument is 'Generate'.")
	fs.StringVar(&check, "Check", "", "Dataset directory to verify.")
	fs.StringVar(&plotDir, "Plot", "", "Split directory to plot trajectories from.")
	fs.IntVar(&sequence, "Sequence", 0, "Sequence plotted in [Plot] mode.")
	fs.StringVar(&plotFile, "PlotFile", "trajectories.png", "Output file of [Plot] mode.")
	fs.IntVar(&threads, "Threads", -1, "Number of worker goroutines. 0 uses one per core.")

	def := io.DefaultConfig()
	ff.register(fs, &def)
	flag.Parse()

	modeName, err := getModeName(vars)
	if errors.Is(err, errNoMode) {
		// Field flags on their own run [Generate] mode with defaults.
		con := io.DefaultConfig()
		if !ff.apply(fs, &con) {
			log.Fatal(err.Error())
		}
		generateMain(&con, threads)
		return
	} else if err != nil {
		log.Fatal(err.Error())
	}

	switch modeName {
	case "Generate":
		con, err := io.ReadConfig(generate)
		if err != nil {
			log.Fatal(err.Error())
		}
		ff.apply(fs, con)
		generateMain(con, threads)

	case "ExampleConfig":
		switch exampleConfig {
		case "Generate":
			fmt.Println(io.ExampleGenerateFile)
		default:
			log.Fatalf("Unrecognized config type '%s'.", exampleConfig)
		}

	case "Check":
		if err := bouncing.CheckDataset(check); err != nil {
			log.Fatal(err.Error())
		}
		fmt.Printf("%s is a valid dataset.\n", check)

	case "Plot":
		if err := plot.Trajectories(plotDir, sequence, plotFile); err != nil {
			log.Fatal(err.Error())
		}

	default:
		panic("Impossible")
	}
}

// errNoMode is returned by getModeName when no mode flag is set.
var errNoMode = errors.New("No mode flags have been set.")

func getModeName(vars map[string]*string) (string, error) {
	setNames := []string{}

	for name, varPtr := range vars {
		if *varPtr != "" {
			setNames = append(setNames, name)
		}
	}
	sort.Strings(setNames)

	if len(setNames) == 0 {
		return "", errNoMode
	}

	if len(setNames) > 1 {
		return "", fmt.Errorf(
			"The following flags were set: %s, but bouncing only accepts "+
				"one mode flag at a time.",
			strings.Join(setNames, ", "),
		)
	}

	return setNames[0], nil
}

func generateMain(con *io.Config, threads int) {
	if threads >= 0 {
		con.Workers = threads
	}
	if err := con.Check(); err != nil {
		log.Fatal(err.Error())
	}

	fg := generateSetupIO(con)
	defer fg.Close()

	fg.log.Infow("Running Generate main.", "dir", con.Output,
		"sequences", con.Sequences, "sequence_len", con.SequenceLen)

	n, err := bouncing.GenerateData(*con, bouncing.Logger(fg.log))
	if err != nil {
		fg.log.Errorf("Generation failed: %s", err.Error())
		fg.Close()
		os.Exit(1)
	}
	fg.log.Infof("Generated %d sequences.", n)
}

func generateSetupIO(con *io.Config) *FileGroup {
	fg := &FileGroup{}

	zcfg := zap.NewProductionConfig()
	zcfg.Encoding = "console"
	if con.LogFile != "" {
		zcfg.OutputPaths = []string{con.LogFile}
	}
	logger, err := zcfg.Build()
	if err != nil {
		log.Fatal(err.Error())
	}
	fg.log = logger.Sugar()

	if con.ProfileFile != "" {
		fg.prof, err = os.Create(con.ProfileFile)
		if err != nil {
			log.Fatal(err.Error())
		}
		if err = pprof.StartCPUProfile(fg.prof); err != nil {
			log.Fatal(err.Error())
		}
	}

	return fg
}
