package pipeline

import (
	"bytes"
	"os/exec"

	"github.com/antonholmquist/jason"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/uga-libraries/aip-aptrust/bagit"
)

// IntegrityChecker verifies the internal consistency of a bag directory:
// manifests complete, checksums matching, tag files readable. The pipeline
// runs one check right after extraction and another after all mutations, and
// is otherwise indifferent to how the checking is done.
type IntegrityChecker interface {
	Check(path string) Outcome
}

// BagChecker verifies bags in-process using the bagit package.
type BagChecker struct {
	Fs afero.Fs
}

var _ IntegrityChecker = BagChecker{}

// Check opens and verifies the bag at path.
func (c BagChecker) Check(path string) Outcome {
	b, err := bagit.Open(c.Fs, path)
	if err == bagit.ErrNoDeclaration {
		return Invalid(err.Error())
	}
	if err != nil {
		return CheckError(err)
	}
	problems, err := b.Verify()
	if err != nil {
		return CheckError(err)
	}
	if len(problems) > 0 {
		return Invalid(problems...)
	}
	return Valid()
}

// CmdChecker delegates verification to the partner command-line tool. The
// tool prints a JSON report on stdout with a boolean "valid" and an "errors"
// array; a non-zero exit with a readable report still counts as a normal
// invalid outcome, while a tool we cannot run or understand is a check
// error. This checker works on the real filesystem only.
type CmdChecker struct {
	// Tool is the path of the validator executable.
	Tool string

	// Config is passed as the tool's --config argument when set.
	Config string
}

var _ IntegrityChecker = CmdChecker{}

func (c CmdChecker) Check(path string) Outcome {
	args := []string{}
	if c.Config != "" {
		args = append(args, "--config="+c.Config)
	}
	args = append(args, path)

	var stdout bytes.Buffer
	cmd := exec.Command(c.Tool, args...)
	cmd.Stdout = &stdout
	runErr := cmd.Run()
	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); !ok {
			// the tool never ran
			return CheckError(errors.Wrap(runErr, "run integrity checker"))
		}
	}

	report, err := jason.NewObjectFromBytes(stdout.Bytes())
	if err != nil {
		if runErr != nil {
			return CheckError(errors.Wrap(runErr, "integrity checker failed without a report"))
		}
		return CheckError(errors.Wrap(err, "parse integrity checker report"))
	}
	valid, err := report.GetBoolean("valid")
	if err != nil {
		return CheckError(errors.Wrap(err, "integrity checker report has no verdict"))
	}
	if valid {
		return Valid()
	}
	reasons, err := report.GetStringArray("errors")
	if err != nil || len(reasons) == 0 {
		reasons = []string{"integrity checker reported an invalid bag"}
	}
	return Invalid(reasons...)
}
