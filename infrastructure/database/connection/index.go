package connection

import (
	"rollcall.io/infrastructure/database/connection/datastore"
)

func ConnectToDatabase() {
	datastore.Connect()
}
