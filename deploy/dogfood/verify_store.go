package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	db, err := sql.Open("sqlite3", "deploy/dogfood/orbweaver.db")
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	var total int
	err = db.QueryRow("SELECT count(*) FROM records").Scan(&total)
	if err != nil {
		log.Fatal(err)
	}

	var withIDs int
	err = db.QueryRow("SELECT count(*) FROM records WHERE node_id != ''").Scan(&withIDs)
	if err != nil {
		log.Fatal(err)
	}

	var linked int
	err = db.QueryRow("SELECT count(*) FROM records WHERE topic_counts != '' AND topic_counts != '{}'").Scan(&linked)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Total records: %d\n", total)
	fmt.Printf("Records with assigned node ids: %d\n", withIDs)
	fmt.Printf("Records contributing edges: %d\n", linked)
}
