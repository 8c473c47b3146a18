// Package services contains the application services behind the terminal
// client: authentication and PIN handling, and the offline-first sync
// services for jobs, time entries, notifications, documents and the location
// upload queue.
//
// Reads are served from the local cache. Writes go to the backend first and
// fall back to an unsynced local row that a later Sync pass uploads.
package services
