// Package shopassist is a Go client for the shopassist HTTP API.
//
// The client calls shopping functions directly or talks to the assistant:
//
//	client, _ := shopassist.New("http://localhost:8080",
//	    shopassist.WithAPIKey(os.Getenv("SHOPASSIST_API_KEY")),
//	    shopassist.WithUserID("user-42"),
//	)
//
//	res, _ := client.IntelligentSearch(ctx, shopassist.SearchArgs{
//	    Query: "milk and bread", Latitude: 24.86, Longitude: 67.0,
//	})
//
//	reply, _ := client.Chat(ctx, "session-1", "add two litres of milk")
//	fmt.Println(reply.Message)
package shopassist
