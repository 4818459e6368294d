package process

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fixture(name string) string {
	return filepath.Join("testdata", name)
}

func messages(problems []Problem) []string {
	result := make([]string, 0, len(problems))
	for _, problem := range problems {
		result = append(result, problem.String())
	}

	return result
}

func TestValidateFile_Header(t *testing.T) {
	file := fixture("no_header.yaml")
	assert.Equal(t, []string{file + ":1 This process lacks the process-info node"}, messages(ValidateFile(file)))

	file = fixture("misplaced_header.yaml")
	assert.Equal(t, []string{
		file + ":4 process-info node must be the first node",
		file + ":4 Process' metadata lacks node author",
	}, messages(ValidateFile(file)))
}

func TestValidateFile_Ids(t *testing.T) {
	file := fixture("ids.yaml")

	assert.Equal(t, []string{
		file + ":8 All nodes must have an id",
		file + ":13 Id must be a valid variable name",
		file + ":17 Duplicated id: 'twice'",
	}, messages(ValidateFile(file)))
}

func TestValidateFile_Conditions(t *testing.T) {
	file := fixture("conditions.yaml")

	assert.Equal(t, []string{
		file + ":17 Lex error in condition",
		file + ":21 Parse error in condition",
		file + ":25 Grammar error in condition",
		file + ":29 variable used in if is not defined 'mistery.secret'",
		file + ":40 variable used in if is not defined 'inner.value'",
	}, messages(ValidateFile(file)))
}

func TestValidateFile_References(t *testing.T) {
	file := fixture("references.yaml")

	assert.Equal(t, []string{
		file + ":15 Referenced user is never created: later_node",
		file + ":18 Referenced param does not exist 'request.boss'",
		file + ":24 Field names must match [a-zA-Z0-9_]+",
		file + ":26 Form ids must be valid variable names",
		file + ":29 Referenced dependency does not exist 'request.missing'",
	}, messages(ValidateFile(file)))
}

func TestValidateFile_Examples(t *testing.T) {
	files, err := filepath.Glob(filepath.Join(examplesDir, "*.yaml"))
	assert.NoError(t, err)
	assert.NotEmpty(t, files)

	for _, file := range files {
		assert.Empty(t, ValidateFile(file), file)
	}
}

func TestValidateFile_Structure(t *testing.T) {
	problems := ValidateFile(fixture("structure.yaml"))

	if assert.Len(t, problems, 1) {
		assert.Equal(t, 8, problems[0].Line)
		assert.Contains(t, problems[0].Message, "Invalid structure at nodes.0.action")
	}
}

func TestValidateFile_Missing(t *testing.T) {
	problems := ValidateFile(fixture("does_not_exist.yaml"))

	assert.Len(t, problems, 1)
}
