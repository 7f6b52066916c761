package config

import (
	"flag"
	"os"
	"time"

	"github.com/kaplunov-alex/PWMgr/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   session token HMAC secret
//	-i int      session idle timeout, minutes
//	-t int      session token lifetime, minutes
//	-m int      failed logins before lockout
//	-l int      lockout duration, minutes
//	-n int      PBKDF2 iterations for a new master password
//	-q float    request throttle, requests per second
//	-k int      request throttle burst
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-v string   log level
//
// Duration flags are integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-d", "-s", "-i", "-t", "-m", "-l", "-n", "-q", "-k", "-u", "-p", "-b", "-g", "-e", "-v",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "session token secret key")

	sessionIdleTTL := fs.Int("i", int(config.SessionIdleTTL.Minutes()), "session idle timeout (in minutes)")
	tokenTTL := fs.Int("t", int(config.TokenTTL.Minutes()), "session token validity (in minutes)")
	fs.IntVar(&config.MaxAttempts, "m", config.MaxAttempts, "failed login attempts before lockout")
	lockout := fs.Int("l", int(config.LockoutDuration.Minutes()), "lockout duration (in minutes)")
	fs.IntVar(&config.PBKDF2Iterations, "n", config.PBKDF2Iterations, "PBKDF2 iterations")
	fs.Float64Var(&config.RequestsPerSecond, "q", config.RequestsPerSecond, "requests per second")
	fs.IntVar(&config.RequestBurst, "k", config.RequestBurst, "request burst")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionIdleTTL = time.Duration(*sessionIdleTTL) * time.Minute
	config.TokenTTL = time.Duration(*tokenTTL) * time.Minute
	config.LockoutDuration = time.Duration(*lockout) * time.Minute
}
