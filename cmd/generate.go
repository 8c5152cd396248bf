package main

//go:generate bash -c "export PATH=$$PATH:~/go/bin && sqlc generate -f ../sqlc.yaml"

// Regenerate storage/db from storage/queries with:
//
//	go generate ./cmd
