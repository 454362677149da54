/*
Package session serializes concurrent access to workflow instances.

It hands out reference-counted per-flow mutexes so two requests touching the
same workflow never interleave within a process, and can extend the same
guarantee across replicas through a distributed lock.
*/
package session
