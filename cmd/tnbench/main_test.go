package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCSV_Empty(t *testing.T) {
	assert.Nil(t, splitCSV(""))
}

func TestSplitCSV_TrimsAndDropsBlanks(t *testing.T) {
	assert.Equal(t, []string{"tank", "backup"}, splitCSV("tank, backup"))
	assert.Equal(t, []string{"serial", "parallel"}, splitCSV("serial,,parallel, "))
}

func TestSplitCSV_Single(t *testing.T) {
	assert.Equal(t, []string{"all"}, splitCSV("all"))
}
