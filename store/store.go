// Package store 是 core.KeyValueStore 的两种实现：进程内的 MemoryStore
// 与基于 go-redis 的 RedisStore。repository.KV 在它们之上组织行为、热度与目录数据。
package store
