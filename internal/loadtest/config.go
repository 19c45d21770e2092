package loadtest

import (
	"time"

	service "github.com/okian/mcf/internal/app"
	"github.com/okian/mcf/internal/domain/method"
	"github.com/okian/mcf/internal/domain/model"
)

// Config holds configuration for a load test run
type Config struct {
	BaseURL    string        // Base URL of the service
	Requests   int           // Number of estimation requests to submit
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for generated datasets, skipped when empty
	Verbose    bool          // Log every request

	Cohort     Cohort      // Shape of each generated dataset
	Seed       uint64      // Dataset i is generated from stream (Seed, i)
	Methods    *method.Set // Methods sent with every request, server defaults when nil
	Replicates uint        // var_bootstrap_B sent with bootstrap requests
}

// Exchange is one submitted request together with the server's answer.
type Exchange struct {
	Index  int
	Body   service.Request
	Result model.Result
	Status int
	Err    error
}

// Stats holds test statistics
type Stats struct {
	DatasetsGenerated int
	RequestsSubmitted int
	RequestsOK        int
	RequestsFailed    int
	ResultsFetched    int
	ResultsListed     int
	ResultsVerified   int
	ResultsMismatched int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
