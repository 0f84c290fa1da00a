// Package vitrine embeds the vitrine product search engine in a Go program.
//
// The catalog lives in SQLite or Postgres. Similarity search is enabled by adding a
// Redis vector index together with a multimodal embedder; without it every text search
// is answered by the catalog alone and image search returns empty, degraded pages.
//
//	client, _ := vitrine.New(ctx,
//	    vitrine.WithSQLite("catalog.db"),
//	    vitrine.WithRedis("localhost:6379", ""),
//	    vitrine.WithEmbedder(clip, "clip-vit-b-32", 512),
//	)
//	defer client.Close()
//
//	_ = client.Upsert(ctx, products)
//	page, _ := client.SearchText(ctx, vitrine.Query{Text: "red running shoes", Gender: "Women"})
//	for _, hit := range page.Hits {
//	    fmt.Println(hit.ID, hit.Title, hit.Score)
//	}
package vitrine
