package cmd

import (
	"testing"

	"github.com/magiconair/properties/assert"
	"github.com/spf13/afero"
)

func TestProcessRefineInput(t *testing.T) {
	var (
		err error
		fs  = afero.NewMemMapFs()
	)
	fileInput := []byte(`
Title: Test Case
MinAngle: 18.5 # degrees
Workers: 3
MaxRetries: 4
OutputPrefix: refined
`)
	if err = afero.WriteFile(fs, "params.yaml", fileInput, 0644); err != nil {
		panic(err)
	}
	ip, err := processRefineInput(fs, &ModelRefine{ParamsFile: "params.yaml"})
	if err != nil {
		panic(err)
	}
	assert.Equal(t, ip.Title, "Test Case")
	assert.Equal(t, ip.MinAngle, 18.5)
	assert.Equal(t, ip.Workers, 3)
	assert.Equal(t, ip.MaxRetries, 4)
	assert.Equal(t, ip.OutputPrefix, "refined")
	ip.Print()

	_, err = processRefineInput(fs, &ModelRefine{ParamsFile: "missing.yaml"})
	assert.Equal(t, err != nil, true)
	if err = afero.WriteFile(fs, "bad.yaml", []byte("MinAngle: 90\n"), 0644); err != nil {
		panic(err)
	}
	_, err = processRefineInput(fs, &ModelRefine{ParamsFile: "bad.yaml"})
	assert.Equal(t, err != nil, true)
}
