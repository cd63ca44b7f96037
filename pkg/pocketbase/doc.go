// Package pocketbase is a client for the PocketBase realtime API.
//
// A Client owns a single realtime connection that is opened lazily by the
// first Subscribe call. Every topic is kept in a local registry, and the
// whole topic set is re-submitted to the server after each handshake and
// after every Subscribe or Unsubscribe.
//
// Basic usage:
//
//	client, err := pocketbase.NewClient(pocketbase.Config{
//		ServerURL: "http://127.0.0.1:8090",
//		Token:     token,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(ctx, "posts", "*", realtime.HandlerFunc(func(e sse.Event) {
//		fmt.Println(e.Type, e.Data)
//	}))
//
// Handlers are not filtered by topic: every subscribed handler receives every
// non-handshake event and should inspect Event.Type.
package pocketbase
