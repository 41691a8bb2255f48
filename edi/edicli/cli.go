// Package edicli wires the generation and import operations into the
// command line application.
package edicli

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/claimstream/edi-fixtures/edi/constants"
	"github.com/claimstream/edi-fixtures/edi/database"
	"github.com/claimstream/edi-fixtures/edi/decoder"
	"github.com/claimstream/edi-fixtures/edi/encoder"
	"github.com/claimstream/edi-fixtures/edi/identity"
	"github.com/claimstream/edi-fixtures/edi/registry"
	"github.com/claimstream/edi-fixtures/edi/repository/postgres"
	"github.com/claimstream/edi-fixtures/log"
)

// App Name and usage.  Edit them here to prevent breaking tests
const Name = "edi-fixtures"
const Usage = "EDI test fixture generation and import CLI"

const (
	formatX12 = "x12"
	formatCSV = "csv"
)

func GetApp() *cli.App {
	return setUpApp()
}

func setUpApp() *cli.App {
	app := cli.NewApp()
	app.Name = Name
	app.Usage = Usage
	app.Version = constants.Version

	var (
		outputFile, businessSize, riskProfile, format, filePath string
		count                                                   int
		seed                                                    int64
		invalidRate                                             float64
	)

	generateFlags := func(extra ...cli.Flag) []cli.Flag {
		flags := []cli.Flag{
			cli.StringFlag{
				Name:        "output",
				Usage:       "Output file path (defaults to samples/edi_<type>_sample.<ext>)",
				Destination: &outputFile,
			},
			cli.IntFlag{
				Name:        "count",
				Usage:       "Exact record count, bypassing volume sampling",
				Destination: &count,
			},
			cli.StringFlag{
				Name:        "business-size",
				Usage:       "Volume profile: small, medium or large",
				Value:       "medium",
				Destination: &businessSize,
			},
			cli.Float64Flag{
				Name:        "invalid-rate",
				Usage:       "Per-record probability of deliberate data issues",
				Destination: &invalidRate,
			},
			cli.StringFlag{
				Name:        "format",
				Usage:       "Output format: x12 or csv",
				Value:       formatX12,
				Destination: &format,
			},
			cli.Int64Flag{
				Name:        "seed",
				Usage:       "Random seed (0 uses the current time)",
				Destination: &seed,
			},
		}
		return append(flags, extra...)
	}

	importFlags := []cli.Flag{
		cli.StringFlag{
			Name:        "file",
			Usage:       "Path of the EDI file to import",
			Destination: &filePath,
		},
	}

	newGenerator := func() *encoder.Generator {
		s := seed
		if s == 0 {
			s = time.Now().UnixNano()
		}
		rnd := rand.New(rand.NewSource(s))
		return encoder.New(registry.NewContext(), identity.Synthetic{}, rnd, log.Generator)
	}

	options := func(transactionType, ext string) encoder.Options {
		opts := encoder.Options{
			BusinessSize: businessSize,
			InvalidRate:  invalidRate,
			RiskProfile:  riskProfile,
			OutputFile:   outputFile,
		}
		if count > 0 {
			c := count
			opts.Count = &c
		}
		if opts.OutputFile == "" {
			opts.OutputFile = fmt.Sprintf("samples/edi_%s_sample.%s", transactionType, ext)
		}
		return opts
	}

	generate := func(g *encoder.Generator, transactionType string) error {
		switch format {
		case formatX12:
			opts := options(transactionType, "txt")
			var err error
			switch transactionType {
			case constants.Transaction834:
				_, err = g.Generate834(opts)
			case constants.Transaction837:
				_, err = g.Generate837(opts)
			case constants.Transaction835:
				_, err = g.Generate835(opts)
			}
			return err
		case formatCSV:
			opts := options(transactionType, "csv")
			var err error
			switch transactionType {
			case constants.Transaction834:
				_, err = g.Generate834CSV(opts)
			case constants.Transaction837:
				_, err = g.Generate837CSV(opts)
			case constants.Transaction835:
				_, err = g.Generate835CSV(opts)
			}
			return err
		default:
			return errors.Errorf("unknown format %s", format)
		}
	}

	newImporter := func() (*decoder.Importer, func(), error) {
		db, err := database.Connect()
		if err != nil {
			return nil, nil, err
		}
		repo := postgres.NewRepository(db)
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		imp := decoder.NewImporter(repo, identity.Synthetic{}, rnd, log.Parser)
		return imp, func() { _ = db.Close() }, nil
	}

	runImport := func(doImport func(*decoder.Importer) (int, error)) error {
		if filePath == "" {
			return errors.New("file is required")
		}
		imp, cleanup, err := newImporter()
		if err != nil {
			return err
		}
		defer cleanup()
		_, err = doImport(imp)
		return err
	}

	app.Commands = []cli.Command{
		{
			Name:     "generate-834",
			Category: "Generation",
			Usage:    "Generate a benefit enrollment (834) fixture",
			Flags:    generateFlags(),
			Action: func(c *cli.Context) error {
				return generate(newGenerator(), constants.Transaction834)
			},
		},
		{
			Name:     "generate-837",
			Category: "Generation",
			Usage:    "Generate a healthcare claim (837) fixture",
			Flags: generateFlags(cli.StringFlag{
				Name:        "risk-profile",
				Usage:       "Risk profile: high_risk, low_risk or balanced",
				Value:       "balanced",
				Destination: &riskProfile,
			}),
			Action: func(c *cli.Context) error {
				return generate(newGenerator(), constants.Transaction837)
			},
		},
		{
			Name:     "generate-835",
			Category: "Generation",
			Usage:    "Generate a claim payment (835) fixture",
			Flags:    generateFlags(),
			Action: func(c *cli.Context) error {
				return generate(newGenerator(), constants.Transaction835)
			},
		},
		{
			Name:     "generate-all",
			Category: "Generation",
			Usage:    "Generate 834, 837 and 835 fixtures sharing one entity population",
			Flags:    generateFlags(),
			Action: func(c *cli.Context) error {
				// One generator so claims reference the generated members and
				// payments reference the generated claims.
				g := newGenerator()
				base := outputFile
				defer func() { outputFile = base }()
				for _, transactionType := range []string{constants.Transaction834, constants.Transaction837, constants.Transaction835} {
					if base != "" {
						// One --output value must not collapse the three
						// transaction types onto the same file.
						outputFile = typedOutputPath(base, transactionType)
					}
					if err := generate(g, transactionType); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Name:     "import-834",
			Category: "Import",
			Usage:    "Import a benefit enrollment (834) file into the claims store",
			Flags:    importFlags,
			Action: func(c *cli.Context) error {
				return runImport(func(imp *decoder.Importer) (int, error) {
					return imp.Import834(context.Background(), filePath)
				})
			},
		},
		{
			Name:     "import-837",
			Category: "Import",
			Usage:    "Import a healthcare claim (837) file into the claims store",
			Flags:    importFlags,
			Action: func(c *cli.Context) error {
				return runImport(func(imp *decoder.Importer) (int, error) {
					return imp.Import837(context.Background(), filePath)
				})
			},
		},
		{
			Name:     "import-835",
			Category: "Import",
			Usage:    "Import a claim payment (835) file into the claims store",
			Flags:    importFlags,
			Action: func(c *cli.Context) error {
				return runImport(func(imp *decoder.Importer) (int, error) {
					return imp.Import835(context.Background(), filePath)
				})
			},
		},
	}

	return app
}

// typedOutputPath inserts the transaction type before the extension, so
// "out/fixtures.txt" becomes "out/fixtures_834.txt".
func typedOutputPath(base, transactionType string) string {
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "_" + transactionType + ext
}
