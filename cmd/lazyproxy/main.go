// lazyproxy is a lazy-activation reverse proxy for Docker Compose services.
//
// Backing services stay stopped until a request names them. The first
// request starts the service through docker compose, waits until it is
// running and forwards the request; services idle past the configured
// threshold are stopped again.
//
// Usage:
//
//	# Start the proxy with defaults plus environment overrides
//	lazyproxy run
//
//	# Start with a configuration file and a .env file
//	lazyproxy run --config /etc/lazyproxy/config.yaml --env-file /etc/lazyproxy/.env
//
//	# List the services of the compose project
//	lazyproxy services
//
//	# Print the effective configuration
//	lazyproxy validate
//
// Requests are routed with two headers:
//
//	curl -H 'X-Target-Service: web' -H 'X-Target-Port: 9000' http://localhost:8001/health
package main

func main() {
	Execute()
}
