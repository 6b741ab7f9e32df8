package tui

import "github.com/qthlpy-collab/jp-immigration-monitor/internal/record"

type datasetLoadedMsg struct {
	err error
}

type refreshDoneMsg struct {
	records []record.Record
	err     error
}

type browserErrMsg struct {
	err error
}
