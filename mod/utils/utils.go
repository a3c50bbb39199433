package utils

import (
	"encoding/json"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
)

/*
	Common

	Some commonly used functions in the file viewer
*/

// Send JSON response, with an extra json header
func SendJSONResponse(w http.ResponseWriter, json string) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(json))
}

// Marshal the given value and send it as JSON
func SendJSON(w http.ResponseWriter, v interface{}) error {
	js, err := json.Marshal(v)
	if err != nil {
		return err
	}
	SendJSONResponse(w, string(js))
	return nil
}

// Send a JSON error object with the given status code
func SendErrorResponse(w http.ResponseWriter, statusCode int, errMsg string) {
	js, _ := json.Marshal(map[string]string{"error": errMsg})
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	w.Write(js)
}

// Send a plain text error with the given status code
func SendTextError(w http.ResponseWriter, statusCode int, errMsg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	w.Write([]byte(errMsg + "\n"))
}

// Check if the GET parameter exists, regardless of its value
func HasPara(r *http.Request, key string) bool {
	_, ok := r.URL.Query()[key]
	return ok
}

func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return true
}

func IsDir(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi.IsDir()
}

// ValidateListeningAddress checks if the given string is a valid
// listening address, e.g. ":8080", "127.0.0.1:8080" or "[::1]:8080"
func ValidateListeningAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return false
	}

	portInt, err := strconv.Atoi(port)
	if err != nil || portInt < 0 || portInt > 65535 {
		return false
	}

	if host == "" || strings.EqualFold(host, "localhost") {
		return true
	}

	return net.ParseIP(host) != nil
}

// Check if given string in a given slice
func StringInArray(arr []string, str string) bool {
	for _, a := range arr {
		if a == str {
			return true
		}
	}
	return false
}
