// Package events implements the phishing-simulation event recording service.
//
// Each write operation is a single unit of work: look up the referenced
// campaign and/or employee, append one immutable event row, commit. Any
// failure rolls the unit back so no partial rows are left behind.
//
// The service depends on the Repository interface defined in repository.go
// and never imports net/http or database/sql directly. Implementations live
// in repository/postgres/ and repository/memory/.
package events
