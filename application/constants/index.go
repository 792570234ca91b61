package constants

// response codes surfaced alongside HTTP statuses so clients can branch on
// the exact scenario
var GALLERY_NOT_LOADED uint = 4120     // load or refresh the gallery before predicting
var SESSION_TIMED_OUT uint = 4130      // result is partial, some images were cut off
var NO_USABLE_ENROLLMENT uint = 4210   // none of the enrollment photos produced a face
var PREDICTION_CACHE_PREFIX = "prediction_session"
