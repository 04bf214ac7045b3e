// Package lock provides the advisory lock coordinator used to serialize
// content submissions.
//
// A Coordinator grants exclusive locks on string resources to named owners.
// Two backends are available: FileCoordinator uses flock(2) files in a local
// directory and suits a single host, RedisCoordinator uses SET NX leases and
// suits several daemons sharing one Redis.
package lock
