// Package types defines the JSON bodies produced by lazyproxy itself, as
// opposed to bodies relayed from backing services.
//
//   - ErrorResponse: the error envelope for routing, start and forwarding
//     failures
//   - ServiceStatus: one row of the admin /services listing
package types
