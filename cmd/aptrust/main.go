package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/uga-libraries/aip-aptrust/config"
	"github.com/uga-libraries/aip-aptrust/fetch"
	"github.com/uga-libraries/aip-aptrust/pipeline"
	"github.com/uga-libraries/aip-aptrust/report"
	"github.com/uga-libraries/aip-aptrust/server"
)

var (
	configFile  = flag.String("config", "", "location of the settings file")
	showVersion = flag.Bool("version", false, "display the version and exit")
	usage       = `
aptrust [options] <command>

Possible commands:
    run
        Process every package in the batch directory.

    fetch
        Download packaged AIPs from the receiving bucket into the
        staging directory.

    serve
        Run the status interface over the outcome database.

AWS credentials, the Sentry DSN, and the MySQL password are taken from
the environment, or from a .env file in the working directory.
`
)

// Version is set by the linker at build time.
var Version = "devel"

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("aptrust version %s\n", Version)
		return
	}

	// credentials only; absence of a .env file is fine
	godotenv.Load()

	c, err := config.Load(*configFile)
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Println(usage)
		return
	}

	switch args[0] {
	case "run":
		err = dorun(c)
	case "fetch":
		err = dofetch(c)
	case "serve":
		err = doserve(c)
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

// openStore connects to the configured outcome database.
func openStore(c *config.Config) (report.Store, error) {
	if c.MySQL != "" {
		log.Printf("Using MySQL")
		return report.NewMysqlStore(c.MySQL)
	}
	log.Printf("Using internal database at %s", c.QlPath)
	store := report.NewQlStore(c.QlPath)
	if store == nil {
		return nil, fmt.Errorf("cannot open database %s", c.QlPath)
	}
	return store, nil
}

func dorun(c *config.Config) error {
	fs := afero.NewOsFs()
	var checker pipeline.IntegrityChecker = &pipeline.BagChecker{Fs: fs}
	if c.Checker.Tool != "" {
		checker = &pipeline.CmdChecker{Tool: c.Checker.Tool, Config: c.Checker.Config}
	}

	batch := &pipeline.Batch{
		Controller: &pipeline.Controller{
			Fs:        fs,
			Checker:   checker,
			Defaults:  c.Defaults(),
			SizeLimit: c.SizeLimit,
			ErrorsDir: c.ErrorsDir,
		},
		Workers: c.Workers,
	}

	batchID := uuid.New().String()
	log.Printf("Starting batch %s in %s", batchID, c.BatchDir)
	results, err := batch.Run(c.BatchDir)
	if err != nil {
		return err
	}

	if err := report.AppendConversionLog(fs, c.ConversionLog, results); err != nil {
		return err
	}
	if err := report.AppendRenameLog(fs, c.RenameLog, results); err != nil {
		return err
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()
	var failed int
	for _, res := range results {
		if res.Failure != nil {
			failed++
		}
		if err := store.SaveResult(batchID, res); err != nil {
			return err
		}
	}
	log.Printf("Batch %s finished: %d converted, %d failed",
		batchID, len(results)-failed, failed)
	return nil
}

func dofetch(c *config.Config) error {
	if c.S3.Bucket == "" {
		return fmt.Errorf("no receiving bucket configured")
	}
	awsSession, err := session.NewSession(&aws.Config{
		Region: aws.String(c.S3.Region),
	})
	if err != nil {
		return err
	}
	src := fetch.NewSource(c.S3.Bucket, c.S3.Prefix, awsSession)
	keys, err := src.List()
	if err != nil {
		return err
	}
	fs := afero.NewOsFs()
	for _, key := range keys {
		target, err := src.Download(fs, key, c.S3.StagingDir)
		if err != nil {
			return err
		}
		log.Printf("Fetched %s", target)
	}
	log.Printf("Fetched %d packages", len(keys))
	return nil
}

func doserve(c *config.Config) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()
	server.Version = Version
	s := &server.StatusServer{
		PortNumber: c.Port,
		Store:      store,
	}
	return s.Run()
}
