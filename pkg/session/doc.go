/*
Package session implements persistence orchestration for the conversation.

Manager wraps a ports.Store and serializes read-modify-write cycles on each
record, so delayed delivery-status updates and bot emissions never overwrite
each other's transcript changes. With a DistributedLocker the same guarantee
holds across processes sharing one store.
*/
package session
