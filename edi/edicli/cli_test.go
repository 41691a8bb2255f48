package edicli

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/urfave/cli"
)

type CLITestSuite struct {
	suite.Suite
	app *cli.App
	dir string
}

func (s *CLITestSuite) SetupTest() {
	s.app = GetApp()
	s.dir = s.T().TempDir()
}

func TestCLITestSuite(t *testing.T) {
	suite.Run(t, new(CLITestSuite))
}

func (s *CLITestSuite) TestAppMetadata() {
	assert.Equal(s.T(), Name, s.app.Name)
	assert.Equal(s.T(), Usage, s.app.Usage)

	names := make([]string, 0, len(s.app.Commands))
	for _, c := range s.app.Commands {
		names = append(names, c.Name)
	}
	for _, want := range []string{
		"generate-834", "generate-837", "generate-835", "generate-all",
		"import-834", "import-837", "import-835",
	} {
		assert.Contains(s.T(), names, want)
	}
}

func (s *CLITestSuite) TestGenerate834WritesX12File() {
	out := filepath.Join(s.dir, "enrollment.txt")
	err := s.app.Run([]string{Name, "generate-834", "--count", "3", "--seed", "9", "--output", out})
	assert.NoError(s.T(), err)

	raw, err := os.ReadFile(out)
	assert.NoError(s.T(), err)
	content := string(raw)
	assert.True(s.T(), strings.HasPrefix(content, "ISA*"))
	assert.Contains(s.T(), content, "ST*834*")
	assert.Contains(s.T(), content, "IEA*1*")
	assert.Equal(s.T(), 3, strings.Count(content, "REF*0F*"))
}

func (s *CLITestSuite) TestGenerate837WritesCSVFile() {
	out := filepath.Join(s.dir, "claims.csv")
	err := s.app.Run([]string{Name, "generate-837", "--count", "4", "--seed", "9", "--format", "csv", "--output", out})
	assert.NoError(s.T(), err)

	f, err := os.Open(out)
	assert.NoError(s.T(), err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	assert.NoError(s.T(), err)
	if assert.Len(s.T(), rows, 5) {
		assert.Equal(s.T(), "claim_id", rows[0][0])
	}
}

func (s *CLITestSuite) TestGenerateAllDerivesPerTypeOutputs() {
	out := filepath.Join(s.dir, "fixtures.txt")
	err := s.app.Run([]string{Name, "generate-all", "--count", "2", "--seed", "7", "--output", out})
	assert.NoError(s.T(), err)

	for _, transactionType := range []string{"834", "837", "835"} {
		raw, err := os.ReadFile(filepath.Join(s.dir, "fixtures_"+transactionType+".txt"))
		assert.NoError(s.T(), err)
		assert.Contains(s.T(), string(raw), "ST*"+transactionType+"*")
	}

	// Nothing lands on the undecorated path.
	_, err = os.Stat(out)
	assert.True(s.T(), os.IsNotExist(err))
}

func (s *CLITestSuite) TestGenerateRejectsUnknownFormat() {
	err := s.app.Run([]string{Name, "generate-834", "--count", "1", "--format", "edifact"})
	assert.Error(s.T(), err)
	assert.Contains(s.T(), err.Error(), "unknown format")
}

func (s *CLITestSuite) TestImportRequiresFile() {
	for _, command := range []string{"import-834", "import-837", "import-835"} {
		err := s.app.Run([]string{Name, command})
		assert.EqualError(s.T(), err, "file is required")
	}
}
