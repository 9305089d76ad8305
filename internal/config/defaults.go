package config

import "time"

const defaultPort = 8080

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "myuser",
	Pass: "mypassword",
	Name: "dispatch_db",
}

var defaultRedis = Redis{
	Addr: "127.0.0.1:6379",
	DB:   0,
}

var defaultKafka = Kafka{
	Brokers:       nil,
	CheckoutTopic: "orders.checkout",
	GroupID:       "dispatch-worker",
	CourierTopic:  "courier.assignments",
	CustomerTopic: "customer.notifications",
}

var defaultLocation = Location{
	MinUpdateInterval: 3 * time.Second,
	PushesPerMinute:   60,
}

// DefaultPort returns the default port.
func DefaultPort() int {
	return defaultPort
}

// DefaultDB returns the default database settings.
func DefaultDB() DB {
	return defaultDB
}

// DefaultRedis returns the default Redis settings.
func DefaultRedis() Redis {
	return defaultRedis
}

// DefaultKafka returns the default Kafka settings.
func DefaultKafka() Kafka {
	k := defaultKafka
	k.Brokers = append([]string(nil), defaultKafka.Brokers...)
	return k
}

// DefaultLocation returns the default location push settings.
func DefaultLocation() Location {
	return defaultLocation
}
