package main

import "time"

// Flag structs to decouple cobra from logic for testing.

type GlobalFlags struct {
	ConfigPath string
}

// APIFlags select the host a client command talks to. An empty APIUrl is
// derived from [server] in the config file.
type APIFlags struct {
	ConfigPath string
	APIUrl     string
	APITimeout time.Duration
}

type ServeFlags struct {
	ConfigPath string
	Daemonize  bool
	PidFile    string
	LogFile    string
}

type DashboardFlags struct {
	Embedded bool
	APIFlags
}

type StartFlags struct {
	// Flags are passed to the recorder verbatim.
	Flags []string
	// UseSettings renders the [settings] table as recorder flags first.
	UseSettings bool
	APIFlags
}

type OpenFlags struct {
	URL string
	APIFlags
}

type HistoryFlags struct {
	Limit int
	APIFlags
}

type HealthFlags struct {
	ConfigPath string
	URL        string
	Timeout    time.Duration
}

type MockRecorderFlags struct {
	Port   int
	Status string
}
