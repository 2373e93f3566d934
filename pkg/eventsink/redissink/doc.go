/*
Package redissink mirrors registry lifecycle events into Redis so that other
processes can observe a registry's slots.

Three structures are kept under Config.Key:

	<key>:events     stream of every event (kind, id, name, at, duration_us, error)
	<key>:occupied   set of occupied slot ids
	<key>:slot:<id>  hash of one slot (name, active, pending, runs, added,
	                 last_run, last_error)

Usage:

	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	sink, err := redissink.New(redissink.Config{Redis: rdb, Key: "tasko:edge-1"})
	if err != nil {
		log.Fatal(err)
	}
	defer sink.Close()

	reg, err := registry.NewWithConfig(registry.Config{Sink: sink})

Writes happen on a background goroutine. When Redis falls behind, events
beyond Config.Buffer are dropped and counted; see Dropped.
*/
package redissink
