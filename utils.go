package main

import (
	"database/sql"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

func saveToMBTile(tiles []ExportTile, db *sql.DB, dt string) error {
	if dt == "mysql" {
		return saveToMysql(tiles, db)
	}
	tx, er := db.Begin()
	if er != nil {
		return er
	}
	sqlStr := "insert or replace into tiles (zoom_level, tile_column, tile_row, tile_data) values (?, ?, ?, ?);"
	for _, tile := range tiles {
		_, err := tx.Exec(sqlStr, 0, tile.X, tile.Row, tile.C)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func saveToMysql(tiles []ExportTile, db *sql.DB) error {
	sqlStr := "replace into tiles (zoom_level, tile_column, tile_row, tile_data) values %s"
	placeholder := "(?,?,?,?)"
	bulkValues := []interface{}{}
	valueStrings := make([]string, 0, len(tiles))
	for _, tile := range tiles {
		valueStrings = append(valueStrings, placeholder)
		bulkValues = append(bulkValues, 0, tile.X, tile.Row, tile.C)
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmStr := fmt.Sprintf(sqlStr, strings.Join(valueStrings, ","))
	res, err := tx.Exec(stmStr, bulkValues...)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	log.Debugf("save batch count %d,insert %d", len(tiles), rows)
	return nil
}

func optimizeConnection(db *sql.DB) error {
	_, err := db.Exec("PRAGMA synchronous=1")
	if err != nil {
		return err
	}
	_, err = db.Exec("PRAGMA locking_mode=EXCLUSIVE")
	if err != nil {
		return err
	}
	_, err = db.Exec("PRAGMA journal_mode=OFF")
	if err != nil {
		return err
	}
	return nil
}
