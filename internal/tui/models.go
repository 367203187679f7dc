package tui

type View int

const (
	ViewJobs View = iota
	ViewDetail
	ViewSearch
)
