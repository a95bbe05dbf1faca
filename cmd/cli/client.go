package main

import (
	"github.com/spf13/viper"

	"github.com/sevigo/docwarden/internal/jobsclient"
)

// jobDTO is an alias kept so the rest of this package's command files read
// naturally; the wire shape itself lives in internal/jobsclient.
type jobDTO = jobsclient.Job

func newAPIClient() *jobsclient.Client {
	base := viper.GetString("API_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	return jobsclient.New(base)
}
